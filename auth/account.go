package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/utils/logger"
)

// Signup creates a new account. It never creates a session; the user must
// confirm their email and log in afterwards.
func (m *Manager) Signup(ctx context.Context, payload SignupPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/signup", payload)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Success("Success", envelope.Message)
	m.nav.NavigateTo(RouteLogin)
	return nil
}

// Logout requests server-side invalidation, then clears the vault and resets
// the registry regardless of the server outcome. A logout while already
// logged out is a no-op locally and leaves everything cleared.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.loading.Begin()()

	_, err := m.api.Post(ctx, "/logout", nil)
	if err != nil {
		logger.LogWarn("server-side logout failed, clearing local session anyway", zap.Error(err))
	}

	if clearErr := m.vault.ClearSession(ctx); clearErr != nil {
		return fmt.Errorf("clear persisted session: %w", clearErr)
	}
	m.registry.Reset()
	m.nav.NavigateTo(RouteLogin)
	return m.fail(err)
}

// ForgotPassword requests a password-reset email and points the navigator
// back at the login route with the originating email context.
func (m *Manager) ForgotPassword(ctx context.Context, payload ForgotPasswordPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/forgot_password", payload)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Success("Success", envelope.Message)
	m.nav.NavigateTo(RouteLogin + "?email=" + url.QueryEscape(payload.Email) + "&from=forgot-password")
	return nil
}

// ResetPassword sets a new password using the emailed token pair.
func (m *Manager) ResetPassword(ctx context.Context, payload ResetPasswordPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	defer m.loading.Begin()()

	path := fmt.Sprintf("/reset_password/%s/%s", payload.Token, payload.UIDB)
	envelope, err := m.api.Post(ctx, path, payload)
	if err != nil {
		return m.fail(err)
	}

	m.nav.NavigateTo(RouteLogin)
	m.notify.Success("Success", envelope.Message)
	return nil
}

// ResendConfirmation asks for a fresh confirmation email.
func (m *Manager) ResendConfirmation(ctx context.Context, payload ResendConfirmationPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/resend_confirmation", payload)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Success("Success", envelope.Message)
	return nil
}

// ConfirmEmail resolves the emailed confirmation link. On success the commit
// is delayed by the configured observation window so the host UI can show a
// confirmation banner first. The login method already on record is kept; a
// fresh confirmation defaults to the normal signup method.
func (m *Manager) ConfirmEmail(ctx context.Context, payload ConfirmEmailPayload) (Result, error) {
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}
	defer m.loading.Begin()()

	path := fmt.Sprintf("/verify/%s/%s", payload.Token, payload.UIDB)
	envelope, err := m.api.Post(ctx, path, nil)
	if err != nil {
		return Result{}, m.fail(err)
	}

	select {
	case <-time.After(m.confirmDelay):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	loginType, present, err := m.vault.LoginType(ctx)
	if err != nil || !present {
		loginType = models.NormalLogin()
	}
	return m.commit(ctx, envelope, loginType)
}
