// Package authtest provides an in-process fake of the identity API for
// exercising the credential exchange and MFA protocols end to end. It
// implements the full route contract with real TOTP validation and JWT
// access tokens.
package authtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"github.com/pquerna/otp/totp"

	"github.com/octabyte/bm-identity/models"
)

// TOTPSecret is the shared enrollment secret every stub account uses, so
// tests can mint valid codes with totp.GenerateCode.
const TOTPSecret = "JBSWY3DPEHPK3PXP"

const jwtSecret = "authtest-signing-secret"

// User is one stub account.
type User struct {
	ID            uint64
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Verified      int
	MFAEnabled    bool
	RecoveryCodes []string
}

// SocialIdentity maps a provider token onto a stub account plus the
// provider-side display fields.
type SocialIdentity struct {
	Provider  string
	Token     string
	UserName  string
	Email     string // must match a User's email
	UserEmail string // account the identity belongs to; defaults to Email
}

// RecordedRequest captures what the client actually sent.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
}

// Server is the fake identity API. Mutate Users / SocialIdentities / Linked
// before (or between) client calls to stage scenarios.
type Server struct {
	URL string

	mu               sync.Mutex
	users            map[string]*User
	socialIdentities map[string]*SocialIdentity
	linked           []models.SocialAccount
	requests         []RecordedRequest
	logouts          int

	httpSrv *httptest.Server
}

// NewServer starts the fake API on a random local port.
func NewServer() *Server {
	s := &Server{
		users:            make(map[string]*User),
		socialIdentities: make(map[string]*SocialIdentity),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(s.record)

	e.POST("/login", s.login)
	e.POST("/signup", s.signup)
	e.POST("/logout", s.logout)
	e.POST("/forgot_password", s.forgotPassword)
	e.POST("/verify/:token/:uidb", s.confirmEmail)
	e.POST("/resend_confirmation", s.resendConfirmation)
	e.POST("/reset_password/:token/:uidb", s.resetPassword)
	e.POST("/login_mfa", s.loginMFA)
	e.POST("/verify_recovery_code", s.verifyRecoveryCode)
	e.POST("/social/:provider", s.socialLogin)

	authed := e.Group("", s.requireBearer)
	authed.POST("/update_password", s.updatePassword)
	authed.POST("/qrcode", s.qrcode)
	authed.POST("/verify_otp", s.verifyOTP)
	authed.POST("/setup_mfa", s.setupMFA)
	authed.POST("/recovery_codes", s.recoveryCodes)
	authed.GET("/social", s.listSocial)
	authed.DELETE("/social/:entity_id", s.deleteSocial)

	s.httpSrv = httptest.NewServer(e)
	s.URL = s.httpSrv.URL
	return s
}

func (s *Server) Close() {
	s.httpSrv.Close()
}

// AddUser registers a stub account and returns it for later mutation.
func (s *Server) AddUser(u User) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = uint64(len(s.users) + 1)
	}
	user := u
	s.users[u.Email] = &user
	return &user
}

// AddSocialIdentity registers a provider token mapping.
func (s *Server) AddSocialIdentity(si SocialIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if si.UserEmail == "" {
		si.UserEmail = si.Email
	}
	ident := si
	s.socialIdentities[si.Provider+":"+si.Token] = &ident
}

// SetLinked stages the linked social account list.
func (s *Server) SetLinked(accounts []models.SocialAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = accounts
}

// Linked returns the current linked account list.
func (s *Server) Linked() []models.SocialAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SocialAccount(nil), s.linked...)
}

// Requests returns everything the client sent so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Logouts returns how many logout calls the server has seen.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// User returns the stub account for an email.
func (s *Server) User(email string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

// MintToken issues an access token the requireBearer middleware accepts.
func (s *Server) MintToken(email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateTOTP mints a currently valid authenticator code.
func GenerateTOTP() (string, error) {
	return totp.GenerateCode(TOTPSecret, time.Now())
}

// NewRecoveryCodes mints a fresh backup code set.
func NewRecoveryCodes(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = random.String(10, random.Alphanumeric)
	}
	return codes
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        c.Request().Method,
			Path:          c.Request().URL.Path,
			Authorization: c.Request().Header.Get("Authorization"),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return rejected(c, http.StatusUnauthorized, "Authentication required")
		}

		parsed, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			return rejected(c, http.StatusUnauthorized, "Invalid access token")
		}

		claims := parsed.Claims.(jwt.MapClaims)
		email, _ := claims["email"].(string)
		s.mu.Lock()
		user := s.users[email]
		s.mu.Unlock()
		if user == nil {
			return rejected(c, http.StatusUnauthorized, "Unknown account")
		}

		c.Set("user", user)
		return next(c)
	}
}

func rejected(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

func userJSON(u *User, accessToken string) echo.Map {
	payload := echo.Map{
		"id":          u.ID,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"email":       u.Email,
		"verified":    u.Verified,
		"mfa_enabled": u.MFAEnabled,
	}
	if accessToken != "" {
		payload["access_token"] = accessToken
	}
	return payload
}

func (s *Server) login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	user := s.users[body.Email]
	s.mu.Unlock()
	if user == nil || user.Password != body.Password {
		return rejected(c, http.StatusUnauthorized, "Invalid email or password")
	}

	if user.Verified == 0 || user.MFAEnabled {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "user": userJSON(user, "")})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": userJSON(user, s.MintToken(user.Email))})
}

func (s *Server) signup(c echo.Context) error {
	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	_, exists := s.users[body.Email]
	s.mu.Unlock()
	if exists {
		return rejected(c, http.StatusConflict, "User already exists.")
	}

	s.AddUser(User{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User successfully created and a confirmation email has been sent via email.",
	})
}

func (s *Server) logout(c echo.Context) error {
	s.mu.Lock()
	s.logouts++
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out"})
}

func (s *Server) forgotPassword(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	user := s.users[body.Email]
	s.mu.Unlock()
	if user == nil {
		return rejected(c, http.StatusNotFound, "Couldn't find the user with given email address for email reset")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password reset email sent to the user"})
}

func (s *Server) confirmEmail(c echo.Context) error {
	token := c.Param("token")
	s.mu.Lock()
	var user *User
	for _, u := range s.users {
		if c.Param("uidb") == u.Email {
			user = u
			break
		}
	}
	s.mu.Unlock()

	if user == nil {
		return rejected(c, http.StatusNotFound, "User not found")
	}
	if token != "valid-token" {
		return rejected(c, http.StatusBadRequest, "The confirmation link is invalid or has expired.")
	}

	s.mu.Lock()
	user.Verified = 1
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "You have confirmed your account. Thanks!",
		"user":    userJSON(user, s.MintToken(user.Email)),
	})
}

func (s *Server) resendConfirmation(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Confirmation email resent"})
}

func (s *Server) resetPassword(c echo.Context) error {
	if c.Param("token") != "valid-token" {
		return rejected(c, http.StatusBadRequest, "Reset Password token has expired")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Your password has been updated! You are now able to log in.",
	})
}

func (s *Server) loginMFA(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	user := s.users[body.Email]
	s.mu.Unlock()
	if user == nil {
		return rejected(c, http.StatusNotFound, "User associated with email not found.")
	}
	if !totp.Validate(body.OTP, TOTPSecret) {
		return rejected(c, http.StatusUnauthorized, "You have supplied an invalid MFA token!")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "The TOTP MFA token is valid",
		"user":    userJSON(user, s.MintToken(user.Email)),
	})
}

func (s *Server) verifyRecoveryCode(c echo.Context) error {
	var body struct {
		Email        string `json:"email"`
		RecoveryCode string `json:"recovery_code"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	user := s.users[body.Email]
	var remaining []string
	found := false
	if user != nil {
		for _, code := range user.RecoveryCodes {
			if code == body.RecoveryCode && !found {
				found = true
				continue
			}
			remaining = append(remaining, code)
		}
		if found {
			user.RecoveryCodes = remaining
		}
	}
	s.mu.Unlock()

	if user == nil {
		return rejected(c, http.StatusNotFound, "User associated with email not found.")
	}
	if !found {
		return rejected(c, http.StatusUnauthorized, "You have supplied an invalid recovery code!")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "The MFA recovery code is valid",
		"user":    userJSON(user, s.MintToken(user.Email)),
	})
}

func (s *Server) socialLogin(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	ident := s.socialIdentities[c.Param("provider")+":"+body.Token]
	var user *User
	if ident != nil {
		user = s.users[ident.UserEmail]
	}
	s.mu.Unlock()

	if ident == nil || user == nil {
		return rejected(c, http.StatusUnauthorized, "Invalid login method")
	}

	auth := echo.Map{"user_name": ident.UserName, "email": ident.Email}
	if user.MFAEnabled {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "user": userJSON(user, ""), "auth": auth})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    userJSON(user, s.MintToken(user.Email)),
		"auth":    auth,
	})
}

func (s *Server) updatePassword(c echo.Context) error {
	var body struct {
		ExistingPassword string `json:"existing_password"`
		NewPassword      string `json:"new_password"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}

	user := c.Get("user").(*User)
	if user.Password != body.ExistingPassword {
		return rejected(c, http.StatusBadRequest, "Provided existing password is invalid")
	}
	if body.ExistingPassword == body.NewPassword {
		return rejected(c, http.StatusBadRequest, "Existing and new password cannot be same.")
	}

	s.mu.Lock()
	user.Password = body.NewPassword
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password has been updated."})
}

func (s *Server) qrcode(c echo.Context) error {
	var body struct {
		Password  string `json:"password"`
		LoginType string `json:"login_type"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}
	if body.LoginType == "" {
		return rejected(c, http.StatusBadRequest, "LoginType not provided for MFA")
	}

	user := c.Get("user").(*User)
	if user.Password != body.Password {
		return rejected(c, http.StatusBadRequest, "Password is invalid.")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"image":   "data:image/png;base64," + random.String(64, random.Alphanumeric),
	})
}

func (s *Server) verifyOTP(c echo.Context) error {
	var body struct {
		OTP string `json:"otp"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}
	if !totp.Validate(body.OTP, TOTPSecret) {
		return rejected(c, http.StatusUnauthorized, "You have supplied an invalid MFA token!")
	}

	user := c.Get("user").(*User)
	codes := NewRecoveryCodes(8)
	s.mu.Lock()
	user.RecoveryCodes = codes
	s.mu.Unlock()

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "OTP verified successfully",
		"data":    echo.Map{"otp_verified": true, "codes": codes},
	})
}

func (s *Server) setupMFA(c echo.Context) error {
	var body struct {
		MFAEnabled bool   `json:"mfa_enabled"`
		OTP        string `json:"otp"`
	}
	if err := c.Bind(&body); err != nil {
		return rejected(c, http.StatusBadRequest, "Invalid request body")
	}
	if body.OTP == "" {
		return rejected(c, http.StatusBadRequest, "OTP is required.")
	}
	if !totp.Validate(body.OTP, TOTPSecret) {
		return rejected(c, http.StatusUnauthorized, "You have supplied an invalid MFA token!")
	}

	user := c.Get("user").(*User)
	s.mu.Lock()
	user.MFAEnabled = body.MFAEnabled
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "MFA enabled successfully"})
}

func (s *Server) recoveryCodes(c echo.Context) error {
	user := c.Get("user").(*User)
	codes := NewRecoveryCodes(8)
	s.mu.Lock()
	user.RecoveryCodes = codes
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": codes})
}

func (s *Server) listSocial(c echo.Context) error {
	s.mu.Lock()
	linked := append([]models.SocialAccount(nil), s.linked...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "login_methods": linked})
}

func (s *Server) deleteSocial(c echo.Context) error {
	entityID := c.Param("entity_id")
	s.mu.Lock()
	var remaining []models.SocialAccount
	removed := false
	for _, account := range s.linked {
		if account.EntityID == entityID {
			removed = true
			continue
		}
		remaining = append(remaining, account)
	}
	s.linked = remaining
	s.mu.Unlock()

	if !removed {
		return rejected(c, http.StatusNotFound, "Social account not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Social account removed"})
}
