package auth

import "github.com/octabyte/bm-identity/models"

// Status is the terminal state of one credential exchange.
type Status string

const (
	// StatusAuthenticated means a session was committed to the registry and
	// the persistent store.
	StatusAuthenticated Status = "authenticated"
	// StatusChallengeRequired means the first factor succeeded but a second
	// one is pending; no session exists yet.
	StatusChallengeRequired Status = "challenge_required"
	// StatusVerificationRequired means the account has not confirmed its
	// email address; no session exists and the UI should offer a resend.
	StatusVerificationRequired Status = "verification_required"
)

// Result is the common outcome contract shared by every credential kind.
type Result struct {
	Status Status

	// Session is set when Status is StatusAuthenticated.
	Session *models.Session

	// Challenge is set when Status is StatusChallengeRequired. It is handed
	// to the caller, never stored centrally.
	Challenge *models.MFAChallenge
	ShowMFA   bool

	// ShowResendLink is set when Status is StatusVerificationRequired.
	ShowResendLink bool
}
