package enums

// LoginKind distinguishes first-party credential logins from third-party
// provider logins.
type LoginKind string

const (
	LoginKindNormal LoginKind = "normal"
	LoginKindSocial LoginKind = "social"
)
