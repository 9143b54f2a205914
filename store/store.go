package store

import "context"

// Item keys for the persisted session fields.
const (
	KeyToken     = "token"
	KeyUserInfo  = "userInfo"
	KeyLoginType = "loginType"
)

// Store is the opaque durable key-value contract backing the session vault.
// Values are serialized records; absence is reported as a nil value, not an
// error. SetItems and RemoveItems apply their whole argument as one unit so
// no reader observes a partial session.
type Store interface {
	SetItem(ctx context.Context, key string, value []byte) error
	GetItem(ctx context.Context, key string) ([]byte, error)
	RemoveItem(ctx context.Context, key string) error
	SetItems(ctx context.Context, items map[string][]byte) error
	RemoveItems(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
