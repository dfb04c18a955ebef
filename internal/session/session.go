// Package session maps opaque tokens to authenticated identities. Sessions
// live only as long as the process; both the HTTP side and the WebSocket
// side resolve against the same store, which is what makes a logout on one
// channel take effect on the other.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Identity is the authenticated principal bound to a session token.
type Identity struct {
	UserID   int64
	Username string
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]Identity)}
}

// Create mints a new token bound to identity.
func (s *Store) Create(identity Identity) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = identity
	s.mu.Unlock()
	return token
}

// Resolve returns the identity bound to token, or false if the token is
// unknown or has been destroyed.
func (s *Store) Resolve(token string) (Identity, bool) {
	s.mu.RLock()
	identity, ok := s.sessions[token]
	s.mu.RUnlock()
	return identity, ok
}

// Destroy removes the session. Destroying an absent token is a no-op.
func (s *Store) Destroy(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
