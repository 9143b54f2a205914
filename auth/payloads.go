package auth

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoginPayload carries first-party credentials.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (p *LoginPayload) Validate() error {
	return validate.Struct(p)
}

// SignupPayload creates a new account. Signup never creates a session; the
// account must confirm its email first.
type SignupPayload struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

func (p *SignupPayload) Validate() error {
	return validate.Struct(p)
}

// SocialPayload carries the opaque token produced by a third-party identity
// SDK. The provider handshake itself happens outside this library.
type SocialPayload struct {
	Token string `json:"token" validate:"required"`
}

func (p *SocialPayload) Validate() error {
	return validate.Struct(p)
}

// MFAPayload resolves a pending challenge with a one-time authenticator code.
type MFAPayload struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

func (p *MFAPayload) Validate() error {
	return validate.Struct(p)
}

// RecoveryPayload resolves a pending challenge with a one-time backup code.
type RecoveryPayload struct {
	Email        string `json:"email" validate:"required,email"`
	RecoveryCode string `json:"recovery_code" validate:"required"`
}

func (p *RecoveryPayload) Validate() error {
	return validate.Struct(p)
}

// ForgotPasswordPayload requests a password-reset email.
type ForgotPasswordPayload struct {
	Email string `json:"email" validate:"required,email"`
}

func (p *ForgotPasswordPayload) Validate() error {
	return validate.Struct(p)
}

// ResetPasswordPayload sets a new password using the emailed reset token.
type ResetPasswordPayload struct {
	Token    string `json:"-" validate:"required"`
	UIDB     string `json:"-" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (p *ResetPasswordPayload) Validate() error {
	return validate.Struct(p)
}

// ConfirmEmailPayload resolves the emailed confirmation link.
type ConfirmEmailPayload struct {
	Token string `json:"-" validate:"required"`
	UIDB  string `json:"-" validate:"required"`
}

func (p *ConfirmEmailPayload) Validate() error {
	return validate.Struct(p)
}

// ResendConfirmationPayload asks for a fresh confirmation email.
type ResendConfirmationPayload struct {
	Email string `json:"email" validate:"required,email"`
}

func (p *ResendConfirmationPayload) Validate() error {
	return validate.Struct(p)
}
