// Package mfa implements second-factor enrollment, recovery-code handling
// and linked social account management, layered on top of the credential
// exchange protocol's collaborators.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/octabyte/bm-identity/auth"
	"github.com/octabyte/bm-identity/connection"
	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/session"
	"github.com/octabyte/bm-identity/store"
)

// Config wires the sub-protocol's collaborators. API, Registry and Vault are
// required. Sharing the Loading gauge with the exchange manager keeps one
// spinner honest across both.
type Config struct {
	API      *connection.Connection
	Registry *session.Registry
	Vault    *store.Vault

	Notifier auth.Notifier
	Loading  *session.LoadingGauge
}

// Manager owns the MFA setup state: the enrollment QR image, the issued
// recovery codes, and the linked social accounts.
type Manager struct {
	api      *connection.Connection
	registry *session.Registry
	vault    *store.Vault
	notify   auth.Notifier
	loading  *session.LoadingGauge

	mu             sync.RWMutex
	qr             string
	recoveryCodes  []string
	socialAccounts []models.SocialAccount
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.API == nil {
		return nil, errors.New("api connection is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if cfg.Vault == nil {
		return nil, errors.New("session vault is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = auth.NopNotifier{}
	}
	if cfg.Loading == nil {
		cfg.Loading = session.NewLoadingGauge()
	}

	return &Manager{
		api:      cfg.API,
		registry: cfg.Registry,
		vault:    cfg.Vault,
		notify:   cfg.Notifier,
		loading:  cfg.Loading,
	}, nil
}

// QR returns the most recently issued enrollment QR image payload.
func (m *Manager) QR() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qr
}

// RecoveryCodes returns the most recently issued backup code set.
func (m *Manager) RecoveryCodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.recoveryCodes...)
}

// SocialAccounts returns the linked third-party identities from the last
// fetch.
func (m *Manager) SocialAccounts() []models.SocialAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SocialAccount(nil), m.socialAccounts...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnrollmentPayload re-authenticates the user before a new secret is issued.
type EnrollmentPayload struct {
	Password  string `json:"password" validate:"required"`
	LoginType string `json:"login_type" validate:"required"`
}

func (p *EnrollmentPayload) Validate() error {
	return validate.Struct(p)
}

// RequestEnrollmentSecret fetches a fresh QR/secret for enrolling an
// authenticator. Every call refetches; nothing is cached.
func (m *Manager) RequestEnrollmentSecret(ctx context.Context, payload EnrollmentPayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/qrcode", payload)
	if err != nil {
		return "", m.fail(err)
	}

	m.mu.Lock()
	m.qr = envelope.Image
	m.mu.Unlock()
	return envelope.Image, nil
}

// VerifyEnrollmentCode confirms a code against the freshly issued secret. On
// success the server mints the recovery-code set, which is stored and
// returned. It does not log the user in.
func (m *Manager) VerifyEnrollmentCode(ctx context.Context, code string) ([]string, error) {
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/verify_otp", map[string]string{"otp": code})
	if err != nil {
		return nil, m.fail(err)
	}

	var payload models.RecoveryCodesPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode recovery codes: %w", err)
	}

	m.mu.Lock()
	m.recoveryCodes = payload.Codes
	m.mu.Unlock()

	m.notify.Success("Success", envelope.Message)
	return payload.Codes, nil
}

// ActivateMFA marks the cached user record as MFA-enabled after the server
// has accepted the enrollment code. The profile is read, modified and
// written back; no fresh server fetch of the full record happens here.
func (m *Manager) ActivateMFA(ctx context.Context, code string) error {
	defer m.loading.Begin()()

	body := map[string]interface{}{"mfa_enabled": true, "otp": code}
	envelope, err := m.api.Post(ctx, "/setup_mfa", body)
	if err != nil {
		return m.fail(err)
	}
	m.notify.Success("Success", envelope.Message)

	user, present, err := m.vault.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("read cached user record: %w", err)
	}
	if !present {
		user = m.registry.CurrentUser()
	}
	user.MFAEnabled = true

	if err := m.vault.SetUserInfo(ctx, user); err != nil {
		return fmt.Errorf("update cached user record: %w", err)
	}
	m.registry.SetCurrentUser(user)
	return nil
}

// RegenerateRecoveryCodes invalidates and replaces the stored backup codes.
func (m *Manager) RegenerateRecoveryCodes(ctx context.Context) ([]string, error) {
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/recovery_codes", nil)
	if err != nil {
		return nil, m.fail(err)
	}

	var codes []string
	if err := json.Unmarshal(envelope.Data, &codes); err != nil {
		return nil, fmt.Errorf("decode recovery codes: %w", err)
	}

	m.mu.Lock()
	m.recoveryCodes = codes
	m.mu.Unlock()
	return codes, nil
}

// ListLinkedAccounts fetches the linked third-party identities.
func (m *Manager) ListLinkedAccounts(ctx context.Context) ([]models.SocialAccount, error) {
	defer m.loading.Begin()()

	envelope, err := m.api.Get(ctx, "/social")
	if err != nil {
		return nil, m.fail(err)
	}

	m.mu.Lock()
	m.socialAccounts = envelope.LoginMethods
	m.mu.Unlock()
	return envelope.LoginMethods, nil
}

// UnlinkAccount removes one linked identity, then re-fetches the whole list
// instead of removing the entry locally, trading a round trip for guaranteed
// consistency with the server.
func (m *Manager) UnlinkAccount(ctx context.Context, entityID string) error {
	defer m.loading.Begin()()

	envelope, err := m.api.Delete(ctx, "/social/"+entityID)
	if err != nil {
		return m.fail(err)
	}
	m.notify.Success("Success", envelope.Message)

	_, err = m.ListLinkedAccounts(ctx)
	return err
}

// UpdatePasswordPayload changes the password of the authenticated account.
type UpdatePasswordPayload struct {
	ExistingPassword string `json:"existing_password" validate:"required"`
	NewPassword      string `json:"new_password" validate:"required"`
}

func (p *UpdatePasswordPayload) Validate() error {
	return validate.Struct(p)
}

// UpdatePassword changes the current user's password.
func (m *Manager) UpdatePassword(ctx context.Context, payload UpdatePasswordPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, "/update_password", payload)
	if err != nil {
		return m.fail(err)
	}

	m.notify.Success("Success", envelope.Message)
	return nil
}

func (m *Manager) fail(err error) error {
	var serverErr *connection.ServerError
	if errors.As(err, &serverErr) {
		m.notify.Error("Error", serverErr.Message)
	}
	return err
}
