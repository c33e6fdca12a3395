package services

import "errors"

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrLoginFailed      = errors.New("login failed")
	ErrEmptyCredentials = errors.New("username and password are required")
)
