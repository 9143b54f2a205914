package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octabyte/bm-identity/auth"
	"github.com/octabyte/bm-identity/authtest"
	"github.com/octabyte/bm-identity/connection"
	"github.com/octabyte/bm-identity/enums"
	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/session"
	"github.com/octabyte/bm-identity/store"
)

type harness struct {
	server   *authtest.Server
	registry *session.Registry
	vault    *store.Vault
	recorder *authtest.Recorder
	manager  *auth.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	server := authtest.NewServer()
	t.Cleanup(server.Close)

	vault := store.NewVault(store.NewMemory())
	registry := session.NewRegistry()
	recorder := authtest.NewRecorder()

	conn, err := connection.New(connection.Config{BaseURL: server.URL}, vault)
	require.NoError(t, err)

	manager, err := auth.NewManager(auth.Config{
		API:          conn,
		Registry:     registry,
		Vault:        vault,
		Notifier:     recorder,
		Navigator:    recorder,
		ConfirmDelay: time.Millisecond,
	})
	require.NoError(t, err)

	return &harness{
		server:   server,
		registry: registry,
		vault:    vault,
		recorder: recorder,
		manager:  manager,
	}
}

func errorNotices(notices []authtest.Notice) []authtest.Notice {
	var out []authtest.Notice
	for _, n := range notices {
		if n.Kind == "error" {
			out = append(out, n)
		}
	}
	return out
}

func TestPasswordLoginCommitsSession(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", FirstName: "A", LastName: "B", Verified: 1})

	result, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	require.Equal(t, auth.StatusAuthenticated, result.Status)
	require.NotNil(t, result.Session)

	assert.True(t, h.registry.IsLoggedIn())
	assert.Equal(t, "A B", h.registry.CurrentUser().FullName)
	assert.Equal(t, models.LoginType{Type: enums.LoginKindNormal, Provider: enums.ProviderSignup}, h.registry.LoginType())

	token := h.vault.Token()
	require.NotEmpty(t, token)
	assert.Equal(t, result.Session.Token, token)

	stored, present, err := h.vault.UserInfo(context.Background())
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "A B", stored.FullName)
	assert.Equal(t, "a@x.com", stored.Email)

	assert.Equal(t, auth.RouteDashboard, h.recorder.LastRoute())
}

func TestLoginInvalidCredentialsNotifiesAndMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1})

	_, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "wrong"})
	require.Error(t, err)

	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)

	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())

	notices := errorNotices(h.recorder.Notices())
	require.Len(t, notices, 1)
	assert.Equal(t, "Invalid email or password", notices[0].Message)
}

func TestLoginUnverifiedReturnsResendHint(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 0})

	result, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	assert.Equal(t, auth.StatusVerificationRequired, result.Status)
	assert.True(t, result.ShowResendLink)
	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())

	notices := errorNotices(h.recorder.Notices())
	require.Len(t, notices, 1)
	assert.Equal(t, "Account not verified", notices[0].Title)
}

func TestLoginMFARequiredReturnsChallenge(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1, MFAEnabled: true})

	result, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	require.Equal(t, auth.StatusChallengeRequired, result.Status)
	assert.True(t, result.ShowMFA)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, "a@x.com", result.Challenge.Email)
	assert.Equal(t, enums.LoginKindNormal, result.Challenge.LoginType.Type)

	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())
}

func TestLoginMFAResolvesChallengeWithProvenance(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", FirstName: "A", LastName: "B", Verified: 1, MFAEnabled: true})

	first, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	require.NotNil(t, first.Challenge)

	code, err := authtest.GenerateTOTP()
	require.NoError(t, err)

	result, err := h.manager.LoginMFA(context.Background(), *first.Challenge, code)
	require.NoError(t, err)

	// The account stays mfa_enabled after the factor is satisfied; the
	// exchange must still commit rather than hand the challenge back again.
	require.Equal(t, auth.StatusAuthenticated, result.Status)
	assert.Nil(t, result.Challenge)
	assert.False(t, result.ShowMFA)
	assert.True(t, h.registry.IsLoggedIn())
	assert.True(t, h.registry.CurrentUser().MFAEnabled)
	assert.Equal(t, enums.ProviderSignup, h.registry.LoginType().Provider)
	assert.NotEmpty(t, h.vault.Token())
	assert.Equal(t, auth.RouteDashboard, h.recorder.LastRoute())
}

func TestLoginMFAWrongCodeRejected(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1, MFAEnabled: true})

	challenge := models.MFAChallenge{Email: "a@x.com", LoginType: models.NormalLogin()}
	_, err := h.manager.LoginMFA(context.Background(), challenge, "000000")
	require.Error(t, err)

	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.False(t, h.registry.IsLoggedIn())
}

func TestLoginRecoveryConsumesCode(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{
		Email: "a@x.com", Password: "p", Verified: 1, MFAEnabled: true,
		RecoveryCodes: []string{"code-one", "code-two"},
	})

	challenge := models.MFAChallenge{Email: "a@x.com", LoginType: models.NormalLogin()}
	result, err := h.manager.LoginRecovery(context.Background(), challenge, "code-one")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAuthenticated, result.Status)
	assert.True(t, h.registry.IsLoggedIn())

	// A consumed code never works twice.
	_, err = h.manager.LoginRecovery(context.Background(), challenge, "code-one")
	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)
}

func TestSocialLoginsCommitUnionRecord(t *testing.T) {
	for _, provider := range enums.SocialProviders {
		t.Run(string(provider), func(t *testing.T) {
			h := newHarness(t)
			h.server.AddUser(authtest.User{Email: "s@x.com", Verified: 1})
			h.server.AddSocialIdentity(authtest.SocialIdentity{
				Provider: string(provider),
				Token:    "provider-token",
				UserName: "Ada Augusta King",
				Email:    "s@x.com",
			})

			result, err := h.manager.LoginSocial(context.Background(), provider, auth.SocialPayload{Token: "provider-token"})
			require.NoError(t, err)

			require.Equal(t, auth.StatusAuthenticated, result.Status)
			assert.Equal(t, models.LoginType{Type: enums.LoginKindSocial, Provider: provider}, h.registry.LoginType())

			user := h.registry.CurrentUser()
			assert.Equal(t, "Ada Augusta King", user.UserName, "provider fields unioned into the record")
			assert.Equal(t, "s@x.com", user.Email, "account fields win on conflict")
			assert.Equal(t, "Ada King", user.FullName, "first and last display-name tokens")
			assert.NotEmpty(t, h.vault.Token())
		})
	}
}

func TestSocialLoginMFAChallengeCarriesProviderEmail(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "s@x.com", Verified: 1, MFAEnabled: true})
	h.server.AddSocialIdentity(authtest.SocialIdentity{
		Provider: "google",
		Token:    "gtok",
		UserName: "Ada King",
		Email:    "s@x.com",
	})

	result, err := h.manager.LoginGoogle(context.Background(), auth.SocialPayload{Token: "gtok"})
	require.NoError(t, err)

	require.Equal(t, auth.StatusChallengeRequired, result.Status)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, "s@x.com", result.Challenge.Email)
	assert.Equal(t, enums.ProviderGoogle, result.Challenge.LoginType.Provider)
	assert.False(t, h.registry.IsLoggedIn())
}

func TestLoginSocialRejectsUnknownProvider(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.LoginSocial(context.Background(), enums.ProviderSignup, auth.SocialPayload{Token: "x"})
	require.Error(t, err)
}

func TestLogoutClearsEverythingAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", FirstName: "A", LastName: "B", Verified: 1})

	_, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	require.True(t, h.registry.IsLoggedIn())

	require.NoError(t, h.manager.Logout(context.Background()))
	assert.False(t, h.registry.IsLoggedIn())
	assert.True(t, h.registry.CurrentUser().IsZero())
	assert.True(t, h.registry.LoginType().IsZero())
	assert.Empty(t, h.vault.Token())
	assert.Equal(t, auth.RouteLogin, h.recorder.LastRoute())

	// Logging out again is a local no-op and stays clean.
	require.NoError(t, h.manager.Logout(context.Background()))
	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())
	assert.Equal(t, 2, h.server.Logouts())
}

func TestLogoutClearsLocallyOnTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1})

	_, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	h.server.Close()

	err = h.manager.Logout(context.Background())
	var transportErr *connection.TransportError
	require.ErrorAs(t, err, &transportErr)

	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())
}

func TestTransportFailureIsSilentAndDistinct(t *testing.T) {
	h := newHarness(t)
	h.server.Close()

	_, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.Error(t, err)

	var transportErr *connection.TransportError
	require.ErrorAs(t, err, &transportErr)
	var serverErr *connection.ServerError
	assert.False(t, errors.As(err, &serverErr))

	assert.Empty(t, errorNotices(h.recorder.Notices()), "transport failures never notify the user")
	assert.False(t, h.registry.IsLoggedIn())
}

func TestSignupNotifiesAndNavigatesToLogin(t *testing.T) {
	h := newHarness(t)

	err := h.manager.Signup(context.Background(), auth.SignupPayload{
		FirstName: "A", LastName: "B", Email: "new@x.com", Password: "p",
	})
	require.NoError(t, err)

	assert.False(t, h.registry.IsLoggedIn(), "signup never creates a session")
	assert.Equal(t, auth.RouteLogin, h.recorder.LastRoute())
	require.NotNil(t, h.server.User("new@x.com"))

	// Duplicate signup is rejected with a notification.
	err = h.manager.Signup(context.Background(), auth.SignupPayload{
		FirstName: "A", LastName: "B", Email: "new@x.com", Password: "p",
	})
	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)
}

func TestForgotPasswordNavigatesWithEmailContext(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1})

	require.NoError(t, h.manager.ForgotPassword(context.Background(), auth.ForgotPasswordPayload{Email: "a@x.com"}))

	route := h.recorder.LastRoute()
	assert.Contains(t, route, auth.RouteLogin)
	assert.Contains(t, route, "email=a%40x.com")
	assert.Contains(t, route, "from=forgot-password")
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)

	err := h.manager.ResetPassword(context.Background(), auth.ResetPasswordPayload{
		Token: "valid-token", UIDB: "uidb", Password: "new-password",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RouteLogin, h.recorder.Routes()[0])

	err = h.manager.ResetPassword(context.Background(), auth.ResetPasswordPayload{
		Token: "expired", UIDB: "uidb", Password: "new-password",
	})
	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)
}

func TestResendConfirmationNotifies(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.manager.ResendConfirmation(context.Background(), auth.ResendConfirmationPayload{Email: "a@x.com"}))

	notices := h.recorder.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "success", notices[0].Kind)
}

func TestConfirmEmailCommitsSessionAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", FirstName: "A", LastName: "B", Verified: 0})

	result, err := h.manager.ConfirmEmail(context.Background(), auth.ConfirmEmailPayload{
		Token: "valid-token", UIDB: "a@x.com",
	})
	require.NoError(t, err)

	assert.Equal(t, auth.StatusAuthenticated, result.Status)
	assert.True(t, h.registry.IsLoggedIn())
	assert.Equal(t, "A B", h.registry.CurrentUser().FullName)
	assert.Equal(t, models.NormalLogin(), h.registry.LoginType())
	assert.NotEmpty(t, h.vault.Token())
	assert.Equal(t, auth.RouteDashboard, h.recorder.LastRoute())
}

func TestConfirmEmailInvalidToken(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 0})

	_, err := h.manager.ConfirmEmail(context.Background(), auth.ConfirmEmailPayload{
		Token: "bogus", UIDB: "a@x.com",
	})
	var serverErr *connection.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.False(t, h.registry.IsLoggedIn())
}

func TestConfirmEmailMissingUserRecordIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "message": "confirmed"}`))
	}))
	defer srv.Close()

	vault := store.NewVault(store.NewMemory())
	registry := session.NewRegistry()
	conn, err := connection.New(connection.Config{BaseURL: srv.URL}, vault)
	require.NoError(t, err)

	manager, err := auth.NewManager(auth.Config{
		API: conn, Registry: registry, Vault: vault, ConfirmDelay: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = manager.ConfirmEmail(context.Background(), auth.ConfirmEmailPayload{
		Token: "valid-token", UIDB: "a@x.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing the user record")
	assert.False(t, registry.IsLoggedIn())
	assert.Empty(t, vault.Token())
}

func TestConfirmEmailDelayHonorsContext(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 0})

	manager, err := auth.NewManager(auth.Config{
		API:          mustConnection(t, h),
		Registry:     h.registry,
		Vault:        h.vault,
		ConfirmDelay: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = manager.ConfirmEmail(ctx, auth.ConfirmEmailPayload{Token: "valid-token", UIDB: "a@x.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation must not wait out the full delay")
	assert.False(t, h.registry.IsLoggedIn())
	assert.Empty(t, h.vault.Token())
}

func mustConnection(t *testing.T, h *harness) *connection.Connection {
	t.Helper()
	conn, err := connection.New(connection.Config{BaseURL: h.server.URL}, h.vault)
	require.NoError(t, err)
	return conn
}

func TestPayloadValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Login(ctx, auth.LoginPayload{Email: "not-an-email", Password: "p"})
	require.Error(t, err)

	_, err = h.manager.Login(ctx, auth.LoginPayload{Email: "a@x.com"})
	require.Error(t, err)

	err = h.manager.Signup(ctx, auth.SignupPayload{Email: "a@x.com"})
	require.Error(t, err)

	_, err = h.manager.LoginSocial(ctx, enums.ProviderGoogle, auth.SocialPayload{})
	require.Error(t, err)

	assert.Empty(t, h.server.Requests(), "invalid payloads never reach the network")
}

func TestUnauthenticatedRequestsCarryNoBearer(t *testing.T) {
	h := newHarness(t)
	h.server.AddUser(authtest.User{Email: "a@x.com", Password: "p", Verified: 1})

	_, err := h.manager.Login(context.Background(), auth.LoginPayload{Email: "a@x.com", Password: "p"})
	require.NoError(t, err)

	requests := h.server.Requests()
	require.NotEmpty(t, requests)
	assert.Empty(t, requests[0].Authorization, "login goes out unauthenticated")
}
