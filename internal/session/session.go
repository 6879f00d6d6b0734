// Package session is the identity collaborator: it issues opaque tokens
// and resolves them back to a user identity. Third-party login exchange
// is out of scope; callers bring their own user ids.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

// Identity is what a validated token resolves to.
type Identity struct {
	UserID string
	Name   string
}

type entry struct {
	identity  Identity
	expiresAt time.Time
}

// Store is an in-memory token table with per-token TTL.
type Store struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]entry
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		tokens: make(map[string]entry),
	}
}

// Issue mints a token for the identity. A missing user id gets a fresh
// guest id.
func (s *Store) Issue(userID, name string) (token string, identity Identity) {
	if userID == "" {
		userID = uuid.NewString()
	}
	if name == "" {
		name = "Player"
	}
	token = uuid.NewString()
	identity = Identity{UserID: userID, Name: name}

	s.mu.Lock()
	s.tokens[token] = entry{identity: identity, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token, identity
}

// Validate resolves a token to its identity. Expired tokens are removed
// on the way out.
func (s *Store) Validate(token string) (Identity, error) {
	s.mu.RLock()
	e, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return Identity{}, ErrInvalidToken
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return Identity{}, ErrInvalidToken
	}
	return e.identity, nil
}

// Revoke drops a token.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
