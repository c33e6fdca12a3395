// Package models holds the rows the campus server persists.
package models

import (
	"time"

	shared "github.com/insubria-survive/survive/internal/models"
)

// User is a student account. The password is never stored: PasswordHash is
// the argon2id key derived with Salt.
type User struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// Public strips the credentials off u.
func (u User) Public() shared.User {
	return shared.User{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}
