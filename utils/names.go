package utils

import "strings"

// FullName joins the first and last name tokens, tolerating either being
// empty.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// SocialFullName derives a full name from a provider display name. The first
// and last space-separated tokens are kept; middle names are dropped. A
// single-token display name is used as-is, with no fabricated surname.
func SocialFullName(displayName string) string {
	tokens := strings.Fields(displayName)
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0]
	default:
		return tokens[0] + " " + tokens[len(tokens)-1]
	}
}
