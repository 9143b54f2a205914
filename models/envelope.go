package models

import "github.com/goccy/go-json"

// Envelope is the identity API's uniform response shape. Success
// discriminates server-rejected outcomes; the remaining fields are populated
// per route.
type Envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`
	User         *User           `json:"user,omitempty"`
	Auth         *SocialAuth     `json:"auth,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Image        string          `json:"image,omitempty"`
	Email        string          `json:"email,omitempty"`
	LoginMethods []SocialAccount `json:"login_methods,omitempty"`
}

// RecoveryCodesPayload is the Data shape returned by the enrollment
// verification route.
type RecoveryCodesPayload struct {
	OTPVerified bool     `json:"otp_verified"`
	Codes       []string `json:"codes"`
}
