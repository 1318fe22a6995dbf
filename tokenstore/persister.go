package tokenstore

import (
	"context"
	"errors"
)

// ErrUnavailable wraps failures of the durable backend.
var ErrUnavailable = errors.New("token persistence unavailable")

// Persister is durable storage for the refresh token.
//
// Load returns "" with a nil error when key is absent. Delete of an absent key succeeds.
type Persister interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
