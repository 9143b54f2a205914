package models

// MFAChallenge is handed back to the caller when a first factor succeeded but
// the account requires a second one. It is never stored centrally; the UI
// resolves it through the MFA login operations.
type MFAChallenge struct {
	Email     string    `json:"email"`
	LoginType LoginType `json:"login_type"`
}

// SocialAccount is one linked third-party identity on the user's profile.
type SocialAccount struct {
	EntityID string `json:"entity_id"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	UserName string `json:"user_name,omitempty"`
}
