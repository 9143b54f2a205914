package models

import "github.com/octabyte/bm-identity/enums"

// LoginType records how the active session was established.
type LoginType struct {
	Type     enums.LoginKind `json:"type,omitempty"`
	Provider enums.Provider  `json:"provider,omitempty"`
}

// IsZero reports whether no login method has been recorded.
func (lt LoginType) IsZero() bool {
	return lt == LoginType{}
}

// NormalLogin is the method stamp for first-party credential logins.
func NormalLogin() LoginType {
	return LoginType{Type: enums.LoginKindNormal, Provider: enums.ProviderSignup}
}

// SocialLogin is the method stamp for a third-party provider login.
func SocialLogin(provider enums.Provider) LoginType {
	return LoginType{Type: enums.LoginKindSocial, Provider: provider}
}

// Session is the authenticated identity view exposed by the registry.
type Session struct {
	CurrentUser User      `json:"current_user"`
	IsLoggedIn  bool      `json:"is_logged_in"`
	LoginType   LoginType `json:"login_type"`
	Token       string    `json:"token"`
}
