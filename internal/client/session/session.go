// Package session holds the identity of the student using the client.
//
// A Session is created once by the application and passed to everything
// that needs the current user. It holds at most one user; reads are live,
// so a component that re-reads after a logout or login sees the new value.
package session

import (
	"sync"

	"github.com/insubria-survive/survive/internal/models"
)

// Tokens are the credentials issued by the campus server.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Session struct {
	mu     sync.RWMutex
	user   *models.User
	tokens Tokens
}

func New() *Session {
	return &Session{}
}

// Current returns the authenticated user, or false when logged out.
func (s *Session) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// UserKey is the identifier preferences are scoped by: the username.
func (s *Session) UserKey() (string, bool) {
	u, ok := s.Current()
	if !ok {
		return "", false
	}
	return u.Username, true
}

// Set replaces the slot with user and its tokens.
func (s *Session) Set(user models.User, tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.tokens = tokens
}

// Clear empties the slot and returns what it held.
func (s *Session) Clear() (models.User, Tokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, Tokens{}, false
	}
	u, t := *s.user, s.tokens
	s.user = nil
	s.tokens = Tokens{}
	return u, t, true
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

// SetTokens stores refreshed tokens. It is a no-op after logout so that a
// refresh racing a logout cannot resurrect credentials.
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	s.tokens = Tokens{AccessToken: access, RefreshToken: refresh}
}
