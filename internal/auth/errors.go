package auth

import "errors"

var (
	// ErrUnauthenticated means the bearer token is missing, malformed or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials means the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by UserStore lookups.
	ErrUserNotFound = errors.New("user not found")
)
