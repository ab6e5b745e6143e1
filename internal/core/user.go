package core

import "errors"

var (
	ErrUserExists   = errors.New("username already registered")
	ErrUserNotFound = errors.New("user not found")
)

// User is an account holder. PasswordHash is a bcrypt hash and never leaves
// the server.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}
