package enums

// Provider identifies how a set of credentials was obtained.
type Provider string

const (
	ProviderSignup   Provider = "signup"
	ProviderGoogle   Provider = "google"
	ProviderGithub   Provider = "github"
	ProviderLinkedin Provider = "linkedin"
	ProviderFacebook Provider = "facebook"
)

// SocialProviders lists the third-party identity providers the exchange
// protocol accepts tokens from.
var SocialProviders = []Provider{
	ProviderGoogle,
	ProviderGithub,
	ProviderLinkedin,
	ProviderFacebook,
}

func (p Provider) IsSocial() bool {
	for _, sp := range SocialProviders {
		if p == sp {
			return true
		}
	}
	return false
}
