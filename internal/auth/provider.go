// Package auth issues and verifies bearer tokens for the write and search
// endpoints. Passwords are bcrypt hashed; tokens are HS256 JWTs whose subject
// is the numeric user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/logging"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	minSecretLength  = 16
)

// Options configures a Provider.
type Options struct {
	Secret     string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Provider implements Authenticator on top of a Store.
type Provider struct {
	users    Store
	secret   []byte
	issuer   string
	ttl      time.Duration
	cost     int
	logger   *logrus.Logger
	now      func() time.Time
	parser   *jwt.Parser
	dummyPwd []byte
}

// NewProvider validates opts and returns a ready Provider.
func NewProvider(users Store, opts Options) (*Provider, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if len(opts.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth secret must be at least %d bytes", minSecretLength)
	}
	if opts.Issuer == "" {
		opts.Issuer = "content-hub"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", opts.BcryptCost)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// Hash compared against when the email is unknown, so both paths pay the
	// same bcrypt cost.
	dummy, err := bcrypt.GenerateFromPassword([]byte("content-hub-placeholder"), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hasher: %w", err)
	}

	p := &Provider{
		users:    users,
		secret:   []byte(opts.Secret),
		issuer:   opts.Issuer,
		ttl:      opts.TokenTTL,
		cost:     opts.BcryptCost,
		logger:   opts.Logger,
		now:      opts.Now,
		dummyPwd: dummy,
	}
	p.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(opts.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return p.now() }),
	)
	return p, nil
}

// Issue registers a user and returns it together with a fresh token.
func (p *Provider) Issue(ctx context.Context, in NewUser) (Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateNewUser(name, email, in.Password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := p.users.CreateUser(ctx, name, email, string(hash))
	if err != nil {
		return Session{}, err
	}

	token, err := p.sign(user.ID)
	if err != nil {
		return Session{}, err
	}
	p.logger.WithFields(logrus.Fields{
		"action":     "user_registered",
		"request_id": logging.RequestIDFrom(ctx),
		"user_id":    user.ID,
	}).Info("user registered")
	return Session{User: user, Token: token}, nil
}

// Verify checks an email/password pair and returns a token on success.
func (p *Provider) Verify(ctx context.Context, creds Credentials) (string, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := p.users.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(p.dummyPwd, []byte(creds.Password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return p.sign(user.ID)
}

// Authenticate parses a bearer token and rejects revoked ones. Token
// failures map to ErrUnauthenticated; a failing revocation lookup is
// returned as is.
func (p *Provider) Authenticate(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrUnauthenticated
	}

	var registered jwt.RegisteredClaims
	if _, err := p.parser.ParseWithClaims(token, &registered, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}); err != nil {
		return Claims{}, fmt.Errorf("%w: %s", ErrUnauthenticated, describeJWTError(err))
	}

	userID, err := strconv.ParseInt(registered.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}
	if registered.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing token id", ErrUnauthenticated)
	}
	revoked, err := p.users.IsTokenRevoked(ctx, registered.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return Claims{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	claims := Claims{TokenID: registered.ID, UserID: userID, Issuer: registered.Issuer}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

// Revoke invalidates the token identified by claims until it would have
// expired anyway.
func (p *Provider) Revoke(ctx context.Context, claims Claims) error {
	if claims.TokenID == "" {
		return ErrUnauthenticated
	}
	expiresAt := claims.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(p.ttl)
	}
	if err := p.users.RevokeToken(ctx, claims.TokenID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	p.logger.WithFields(logrus.Fields{
		"action":     "token_revoked",
		"request_id": logging.RequestIDFrom(ctx),
		"user_id":    claims.UserID,
	}).Info("token revoked")
	return nil
}

func (p *Provider) sign(userID int64) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func describeJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token unverifiable"
	default:
		return "token invalid"
	}
}

func validateNewUser(name, email, password string) error {
	verr := &content.ValidationError{}
	if name == "" {
		verr.Add("name", "must not be empty")
	}
	if email == "" {
		verr.Add("email", "must not be empty")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "is not a valid address")
	}
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(password) > maxPasswordBytes:
		verr.Add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return verr.Err()
}

var _ Authenticator = (*Provider)(nil)
