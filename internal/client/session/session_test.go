package session

import (
	"sync"
	"testing"

	"github.com/insubria-survive/survive/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSession_Lifecycle(t *testing.T) {
	s := New()

	_, ok := s.Current()
	assert.False(t, ok)
	_, _, had := s.Clear()
	assert.False(t, had)

	mario := models.User{ID: "1", Username: "mario", FirstName: "Mario", LastName: "Rossi"}
	s.Set(mario, Tokens{AccessToken: "a1", RefreshToken: "r1"})

	got, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, mario, got)
	key, _ := s.UserKey()
	assert.Equal(t, "mario", key)
	assert.Equal(t, "a1", s.AccessToken())

	s.SetTokens("a2", "r2")
	assert.Equal(t, "a2", s.AccessToken())
	assert.Equal(t, "r2", s.RefreshToken())

	u, tokens, had := s.Clear()
	assert.True(t, had)
	assert.Equal(t, mario, u)
	assert.Equal(t, "r2", tokens.RefreshToken)

	_, ok = s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.AccessToken())
}

func TestSession_SetTokensAfterLogoutIsIgnored(t *testing.T) {
	s := New()
	s.SetTokens("a", "r")
	assert.Empty(t, s.AccessToken())
}

func TestSession_LiveReadAcrossUsers(t *testing.T) {
	s := New()
	s.Set(models.User{Username: "mario"}, Tokens{})
	read := func() string { k, _ := s.UserKey(); return k }

	assert.Equal(t, "mario", read())
	s.Clear()
	s.Set(models.User{Username: "luigi"}, Tokens{})
	assert.Equal(t, "luigi", read())
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(models.User{Username: "mario"}, Tokens{AccessToken: "a"})
		}()
		go func() {
			defer wg.Done()
			s.Current()
			s.Clear()
		}()
	}
	wg.Wait()
}
