package tokenstore

import (
	"context"
	"sync"

	"github.com/MrEthical07/storefront/jwt"
)

// DefaultKey is the persistence key used when none is configured.
const DefaultKey = "token"

// Snapshot is a consistent view of the held credentials.
type Snapshot struct {
	AccessToken  string
	Claims       jwt.Claims
	RefreshToken string
}

// Empty reports whether the snapshot holds no credential at all.
func (s Snapshot) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Store holds the current credentials and mirrors the refresh token into a [Persister].
//
// Replace and Reset are serialized so the persisted value always follows the
// in-memory order of updates. Snapshot never blocks on persistence.
type Store struct {
	persister Persister
	key       string

	writeMu sync.Mutex

	mu    sync.RWMutex
	state Snapshot
}

// New returns a Store persisting under key. A nil persister keeps the refresh token in
// memory only; an empty key selects [DefaultKey].
func New(p Persister, key string) *Store {
	if p == nil {
		p = NewMemoryStore()
	}
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		persister: p,
		key:       key,
		state:     Snapshot{Claims: jwt.Anonymous()},
	}
}

// Key returns the persistence key.
func (s *Store) Key() string {
	return s.key
}

// Snapshot returns the current credentials.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Replace swaps all credentials at once, then persists the refresh token.
//
// The in-memory update always takes effect; a non-nil error reports only that the
// durable copy could not be written.
func (s *Store) Replace(ctx context.Context, next Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	if next.RefreshToken == "" {
		return s.persister.Delete(ctx, s.key)
	}
	return s.persister.Save(ctx, s.key, next.RefreshToken)
}

// Reset returns the store to the anonymous state and removes the persisted refresh
// token. It reports whether anything was held; a second Reset is a no-op.
func (s *Store) Reset(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	held := !s.state.Empty()
	s.state = Snapshot{Claims: jwt.Anonymous()}
	s.mu.Unlock()

	if !held {
		return false, nil
	}
	return true, s.persister.Delete(ctx, s.key)
}

// CompareAndReplace behaves like Replace but only when the held refresh token still
// equals expected. It reports whether the swap happened.
func (s *Store) CompareAndReplace(ctx context.Context, expected string, next Snapshot) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.state.RefreshToken != expected {
		s.mu.Unlock()
		return false, nil
	}
	s.state = next
	s.mu.Unlock()

	if next.RefreshToken == "" {
		return true, s.persister.Delete(ctx, s.key)
	}
	return true, s.persister.Save(ctx, s.key, next.RefreshToken)
}

// CompareAndReset behaves like Reset but only when the held refresh token still
// equals expected.
func (s *Store) CompareAndReset(ctx context.Context, expected string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.state.RefreshToken != expected || s.state.Empty() {
		s.mu.Unlock()
		return false, nil
	}
	s.state = Snapshot{Claims: jwt.Anonymous()}
	s.mu.Unlock()

	return true, s.persister.Delete(ctx, s.key)
}

// Restore loads the persisted refresh token into memory when no credential is held
// yet, and returns the refresh token now held.
func (s *Store) Restore(ctx context.Context) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current := s.state.RefreshToken
	s.mu.RUnlock()
	if current != "" {
		return current, nil
	}

	token, err := s.persister.Load(ctx, s.key)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", nil
	}

	s.mu.Lock()
	s.state = Snapshot{Claims: jwt.Anonymous(), RefreshToken: token}
	s.mu.Unlock()
	return token, nil
}
