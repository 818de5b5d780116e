// Package tokencache persists accounts and tokens for one client id over a
// pluggable key/value Store. Drivers live in sub-packages.
package tokencache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("tokencache: not found")

	// ErrNoAccount is returned by Persist when neither client_info nor the
	// ID token identify the user.
	ErrNoAccount = errors.New("tokencache: cannot derive account")
)

// Store is the key/value contract every driver implements. Values are
// opaque bytes. A zero ttl never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys lists every live key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
