package server

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/content-hub/internal/auth"
)

// TokenVerifier is the slice of auth.Authenticator the middleware needs.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token before they
// reach the handler. The verified claims are stored for UserID and Claims.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return auth.ErrUnauthenticated
		}
		claims, err := verifier.Authenticate(RequestContext(c), token)
		if err != nil {
			return err
		}
		c.Locals(contextKeyClaims, claims)
		return c.Next()
	}
}

// UserID returns the id set by RequireAuth, or 0 on public routes.
func UserID(c fiber.Ctx) int64 {
	claims, _ := Claims(c)
	return claims.UserID
}

// Claims returns the token claims set by RequireAuth.
func Claims(c fiber.Ctx) (auth.Claims, bool) {
	claims, ok := c.Locals(contextKeyClaims).(auth.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
