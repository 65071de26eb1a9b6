package auth

import (
	"context"
	"time"
)

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser is the signup payload.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned on signup.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Claims is what a verified bearer token carries. TokenID is the jti used
// to revoke the token on logout.
type Claims struct {
	TokenID   string
	UserID    int64
	Issuer    string
	ExpiresAt time.Time
}

// UserStore persists accounts. Emails are unique case-insensitively;
// CreateUser returns ErrUserExists on conflict and FindUserByEmail returns
// ErrUserNotFound for unknown addresses.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// RevocationStore remembers logged-out token ids until they expire.
type RevocationStore interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Store is everything the Provider persists.
type Store interface {
	UserStore
	RevocationStore
}

// Authenticator is the collaborator interface the HTTP layer depends on.
type Authenticator interface {
	Verify(ctx context.Context, creds Credentials) (string, error)
	Issue(ctx context.Context, in NewUser) (Session, error)
	Authenticate(ctx context.Context, token string) (Claims, error)
	Revoke(ctx context.Context, claims Claims) error
}
