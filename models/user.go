package models

// User is the profile record reported by the identity API. Verified is an
// integer on the wire (0 or 1), MFAEnabled a boolean.
type User struct {
	ID          uint64 `json:"id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Verified    int    `json:"verified"`
	MFAEnabled  bool   `json:"mfa_enabled"`
	AccessToken string `json:"access_token,omitempty"`

	// Provider-reported fields, present only when the login was social.
	UserName  string `json:"user_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// IsZero reports whether no profile has been populated.
func (u User) IsZero() bool {
	return u == User{}
}

// SocialAuth carries the provider-side identity fields returned alongside the
// local account record on a social login.
type SocialAuth struct {
	UserName  string `json:"user_name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// MergeUser unions the provider fields with the account record. Account
// fields win on conflict, matching the server's envelope precedence.
func MergeUser(auth SocialAuth, user User) User {
	merged := user
	if merged.UserName == "" {
		merged.UserName = auth.UserName
	}
	if merged.Email == "" {
		merged.Email = auth.Email
	}
	if merged.AvatarURL == "" {
		merged.AvatarURL = auth.AvatarURL
	}
	return merged
}
