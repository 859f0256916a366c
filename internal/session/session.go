// Package session persists the single session token of the device's signed-in user.
package session

import (
	"context"
	"errors"
)

// DefaultKey is the well-known key the token is stored under.
const DefaultKey = "token"

// ErrUnavailable wraps failures of the underlying storage. They are recoverable: the caller treats the
// device as signed out and may retry.
var ErrUnavailable = errors.New("session storage unavailable")

// Store holds at most one session token.
type Store interface {
	// Save persists token, replacing any previous value.
	Save(ctx context.Context, token string) error
	// Load returns the persisted token. ok is false when nothing is stored; that is not an error.
	Load(ctx context.Context) (token string, ok bool, err error)
	// Clear removes the persisted token. Clearing an empty store succeeds.
	Clear(ctx context.Context) error
	// Close releases the underlying storage.
	Close() error
}
