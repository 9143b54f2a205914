// Package session holds the in-memory source of truth for "am I logged in,
// as whom, via what method". Only the credential exchange protocol and the
// MFA sub-protocol write to the registry; everything else reads.
package session

import (
	"sync"

	"github.com/octabyte/bm-identity/models"
)

// Registry is the single write gate over the current session view. All
// fields change together on commit and reset, so a reader never observes a
// logged-in flag without its user record and login method.
type Registry struct {
	mu          sync.RWMutex
	currentUser models.User
	isLoggedIn  bool
	loginType   models.LoginType
	token       string
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) CurrentUser() models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentUser
}

func (r *Registry) IsLoggedIn() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isLoggedIn
}

func (r *Registry) LoginType() models.LoginType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loginType
}

// Snapshot returns a consistent view of all session fields.
func (r *Registry) Snapshot() models.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Session{
		CurrentUser: r.currentUser,
		IsLoggedIn:  r.isLoggedIn,
		LoginType:   r.loginType,
		Token:       r.token,
	}
}

// Commit installs a fully authenticated session in one step. Reserved for
// the credential exchange protocol.
func (r *Registry) Commit(user models.User, token string, loginType models.LoginType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentUser = user
	r.isLoggedIn = true
	r.loginType = loginType
	r.token = token
}

// SetCurrentUser replaces only the cached profile view, keeping the session
// itself intact. Used by profile mutations such as MFA activation.
func (r *Registry) SetCurrentUser(user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentUser = user
}

// Reset clears all session fields atomically.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentUser = models.User{}
	r.isLoggedIn = false
	r.loginType = models.LoginType{}
	r.token = ""
}
