// Package cryptox holds the password hashing used by the campus server.
//
// Passwords are never stored: the server keeps a random salt and the
// argon2id key derived from the password and that salt.
package cryptox

import (
	"crypto/subtle"
	"errors"

	"github.com/insubria-survive/survive/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the length of the per-user salt in bytes.
	SaltSize = 16
	keySize  = 32
)

var ErrEmptyPassword = errors.New("empty password")

// DeriveKey runs argon2id over password and salt.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// HashPassword draws a fresh salt and returns it with the derived key.
func HashPassword(password []byte) (salt, hash []byte, err error) {
	if len(password) == 0 {
		return nil, nil, ErrEmptyPassword
	}
	salt = common.GenerateRandByteArray(SaltSize)
	return salt, DeriveKey(password, salt), nil
}

// VerifyPassword reports whether password matches hash under salt.
// The comparison runs in constant time.
func VerifyPassword(password, salt, hash []byte) bool {
	if len(password) == 0 || len(hash) == 0 {
		return false
	}
	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)
	return subtle.ConstantTimeCompare(key, hash) == 1
}
