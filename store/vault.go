package store

import (
	"context"
	"fmt"

	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/utils"
)

// Vault layers the session field contract over a Store: the token, the
// cached user record, and the login-method descriptor are written together
// on commit and removed together on clear. It also serves as the bearer
// token source for the API connection.
type Vault struct {
	store Store
}

func NewVault(s Store) *Vault {
	return &Vault{store: s}
}

// SaveSession persists all three session fields as a single composite write.
func (v *Vault) SaveSession(ctx context.Context, user models.User, token string, loginType models.LoginType) error {
	userBytes, err := utils.StructToBytes(user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	loginTypeBytes, err := utils.StructToBytes(loginType)
	if err != nil {
		return fmt.Errorf("encode login type: %w", err)
	}

	return v.store.SetItems(ctx, map[string][]byte{
		KeyToken:     []byte(token),
		KeyUserInfo:  userBytes,
		KeyLoginType: loginTypeBytes,
	})
}

// ClearSession removes all three session fields as one unit.
func (v *Vault) ClearSession(ctx context.Context) error {
	return v.store.RemoveItems(ctx, KeyToken, KeyUserInfo, KeyLoginType)
}

// Token implements connection.TokenSource. Store failures read as "no
// credential": the request simply goes out unauthenticated.
func (v *Vault) Token() string {
	value, err := v.store.GetItem(context.Background(), KeyToken)
	if err != nil || value == nil {
		return ""
	}
	return string(value)
}

// UserInfo returns the cached user record. The boolean reports presence.
func (v *Vault) UserInfo(ctx context.Context) (models.User, bool, error) {
	value, err := v.store.GetItem(ctx, KeyUserInfo)
	if err != nil || value == nil {
		return models.User{}, false, err
	}
	var user models.User
	if err := utils.BytesToStruct(value, &user); err != nil {
		return models.User{}, false, fmt.Errorf("decode user record: %w", err)
	}
	return user, true, nil
}

// SetUserInfo replaces only the cached user record, leaving the token and
// login method untouched. Used by read-modify-write profile updates.
func (v *Vault) SetUserInfo(ctx context.Context, user models.User) error {
	userBytes, err := utils.StructToBytes(user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	return v.store.SetItem(ctx, KeyUserInfo, userBytes)
}

// LoginType returns the persisted login-method descriptor.
func (v *Vault) LoginType(ctx context.Context) (models.LoginType, bool, error) {
	value, err := v.store.GetItem(ctx, KeyLoginType)
	if err != nil || value == nil {
		return models.LoginType{}, false, err
	}
	var loginType models.LoginType
	if err := utils.BytesToStruct(value, &loginType); err != nil {
		return models.LoginType{}, false, fmt.Errorf("decode login type: %w", err)
	}
	return loginType, true, nil
}
