// Package auth implements the credential exchange protocol: every way of
// proving an identity converges here and either commits a session, hands a
// second-factor challenge back to the caller, or reports that the account is
// still unverified.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/octabyte/bm-identity/connection"
	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/session"
	"github.com/octabyte/bm-identity/store"
	"github.com/octabyte/bm-identity/utils"
	"github.com/octabyte/bm-identity/utils/logger"
)

// Config wires the manager's collaborators. API, Registry and Vault are
// required; the ports default to no-ops and the gauge to a fresh one.
type Config struct {
	API      *connection.Connection
	Registry *session.Registry
	Vault    *store.Vault

	Notifier  Notifier
	Navigator Navigator
	Loading   *session.LoadingGauge

	// ConfirmDelay is the pause between a successful email confirmation and
	// the session commit, giving the host UI time to show its banner.
	// Defaults to 3 seconds.
	ConfirmDelay time.Duration
}

// Manager runs the credential exchange protocol against the identity API.
// It is the only writer of the session registry and vault besides the MFA
// sub-protocol.
type Manager struct {
	api          *connection.Connection
	registry     *session.Registry
	vault        *store.Vault
	notify       Notifier
	nav          Navigator
	loading      *session.LoadingGauge
	confirmDelay time.Duration
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
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Navigator == nil {
		cfg.Navigator = NopNavigator{}
	}
	if cfg.Loading == nil {
		cfg.Loading = session.NewLoadingGauge()
	}
	if cfg.ConfirmDelay == 0 {
		cfg.ConfirmDelay = 3 * time.Second
	}

	return &Manager{
		api:          cfg.API,
		registry:     cfg.Registry,
		vault:        cfg.Vault,
		notify:       cfg.Notifier,
		nav:          cfg.Navigator,
		loading:      cfg.Loading,
		confirmDelay: cfg.ConfirmDelay,
	}, nil
}

// Loading exposes the gauge so the host UI can render a spinner.
func (m *Manager) Loading() *session.LoadingGauge {
	return m.loading
}

// exchange posts a first-factor credential payload and runs the full
// decision policy on the response.
func (m *Manager) exchange(ctx context.Context, path string, payload interface{}, loginType models.LoginType, challengeEmail string) (Result, error) {
	return m.post(ctx, path, payload, loginType, challengeEmail, false)
}

// exchangeSecondFactor posts a challenge-resolving payload. The account's
// mfa_enabled flag stays true forever; re-checking it here would make the
// challenge unresolvable, so a successful second factor commits directly.
func (m *Manager) exchangeSecondFactor(ctx context.Context, path string, payload interface{}, loginType models.LoginType, challengeEmail string) (Result, error) {
	return m.post(ctx, path, payload, loginType, challengeEmail, true)
}

func (m *Manager) post(ctx context.Context, path string, payload interface{}, loginType models.LoginType, challengeEmail string, secondFactor bool) (Result, error) {
	defer m.loading.Begin()()

	envelope, err := m.api.Post(ctx, path, payload)
	if err != nil {
		return Result{}, m.fail(err)
	}
	return m.resolve(ctx, envelope, loginType, challengeEmail, secondFactor)
}

// resolve applies the decision policy, in order: unverified account, pending
// second factor, full commit. Second-factor exchanges skip the challenge
// branch; their challenge has just been satisfied.
func (m *Manager) resolve(ctx context.Context, envelope *models.Envelope, loginType models.LoginType, challengeEmail string, secondFactor bool) (Result, error) {
	if envelope.User == nil {
		err := fmt.Errorf("success envelope is missing the user record")
		logger.LogError("identity api contract violation", zap.Error(err))
		return Result{}, err
	}

	if envelope.User.Verified == 0 {
		m.notify.Error("Account not verified", "Please visit your email and verify the account first")
		return Result{Status: StatusVerificationRequired, ShowResendLink: true}, nil
	}

	if envelope.User.MFAEnabled && !secondFactor {
		email := challengeEmail
		if envelope.Auth != nil && envelope.Auth.Email != "" {
			email = envelope.Auth.Email
		}
		return Result{
			Status:    StatusChallengeRequired,
			ShowMFA:   true,
			Challenge: &models.MFAChallenge{Email: email, LoginType: loginType},
		}, nil
	}

	return m.commit(ctx, envelope, loginType)
}

// commit persists the token, user record and login method as one logical
// unit, updates the registry, and navigates to the authenticated landing
// area. The registry is only touched after the vault write succeeds, so a
// failure never leaves a half-committed session.
func (m *Manager) commit(ctx context.Context, envelope *models.Envelope, loginType models.LoginType) (Result, error) {
	if envelope.User == nil {
		err := fmt.Errorf("success envelope is missing the user record")
		logger.LogError("identity api contract violation", zap.Error(err))
		return Result{}, err
	}

	user := *envelope.User
	if envelope.Auth != nil {
		user = models.MergeUser(*envelope.Auth, user)
		user.FullName = utils.SocialFullName(envelope.Auth.UserName)
	} else {
		user.FullName = utils.FullName(user.FirstName, user.LastName)
	}

	token := user.AccessToken
	if err := m.vault.SaveSession(ctx, user, token, loginType); err != nil {
		return Result{}, fmt.Errorf("persist session: %w", err)
	}
	m.registry.Commit(user, token, loginType)

	logger.LogInfo("session committed",
		zap.String("email", user.Email),
		zap.String("provider", string(loginType.Provider)))
	m.nav.NavigateTo(RouteDashboard)

	snapshot := m.registry.Snapshot()
	return Result{Status: StatusAuthenticated, Session: &snapshot}, nil
}

// fail surfaces server-rejected messages through the notifier. Transport
// failures stay silent toward the user but are already logged by the
// connection; both come back to the caller as distinguishable errors.
func (m *Manager) fail(err error) error {
	var serverErr *connection.ServerError
	if errors.As(err, &serverErr) {
		m.notify.Error("Error", serverErr.Message)
	}
	return err
}
