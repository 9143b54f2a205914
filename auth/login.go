package auth

import (
	"context"
	"fmt"

	"github.com/octabyte/bm-identity/enums"
	"github.com/octabyte/bm-identity/models"
)

// Login exchanges first-party credentials for a session.
func (m *Manager) Login(ctx context.Context, payload LoginPayload) (Result, error) {
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	return m.exchange(ctx, "/login", payload, models.NormalLogin(), payload.Email)
}

// LoginSocial exchanges a third-party provider token for a session. The
// committed user record is the union of the provider fields and the local
// account record.
func (m *Manager) LoginSocial(ctx context.Context, provider enums.Provider, payload SocialPayload) (Result, error) {
	if !provider.IsSocial() {
		return Result{}, fmt.Errorf("unsupported social provider %q", provider)
	}
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	return m.exchange(ctx, "/social/"+string(provider), payload, models.SocialLogin(provider), "")
}

func (m *Manager) LoginGoogle(ctx context.Context, payload SocialPayload) (Result, error) {
	return m.LoginSocial(ctx, enums.ProviderGoogle, payload)
}

func (m *Manager) LoginGithub(ctx context.Context, payload SocialPayload) (Result, error) {
	return m.LoginSocial(ctx, enums.ProviderGithub, payload)
}

func (m *Manager) LoginLinkedin(ctx context.Context, payload SocialPayload) (Result, error) {
	return m.LoginSocial(ctx, enums.ProviderLinkedin, payload)
}

func (m *Manager) LoginFacebook(ctx context.Context, payload SocialPayload) (Result, error) {
	return m.LoginSocial(ctx, enums.ProviderFacebook, payload)
}

// LoginMFA resolves a pending challenge with an authenticator code. The
// challenge's login type is carried forward so the session is stamped with
// the provenance of the first factor.
func (m *Manager) LoginMFA(ctx context.Context, challenge models.MFAChallenge, code string) (Result, error) {
	payload := MFAPayload{Email: challenge.Email, OTP: code}
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	return m.exchangeSecondFactor(ctx, "/login_mfa", payload, challengeLoginType(challenge), challenge.Email)
}

// LoginRecovery resolves a pending challenge by consuming a one-time backup
// code.
func (m *Manager) LoginRecovery(ctx context.Context, challenge models.MFAChallenge, recoveryCode string) (Result, error) {
	payload := RecoveryPayload{Email: challenge.Email, RecoveryCode: recoveryCode}
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	return m.exchangeSecondFactor(ctx, "/verify_recovery_code", payload, challengeLoginType(challenge), challenge.Email)
}

func challengeLoginType(challenge models.MFAChallenge) models.LoginType {
	if challenge.LoginType.IsZero() {
		return models.NormalLogin()
	}
	return challenge.LoginType
}
