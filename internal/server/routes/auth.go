package routes

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/content-hub/internal/auth"
	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/server"
)

// AuthOptions wires RegisterAuthRoutes.
type AuthOptions struct {
	Authenticator auth.Authenticator
	// Guard protects logout, typically server.RequireAuth.
	Guard fiber.Handler
}

// RegisterAuthRoutes 暴露注册、登录与登出接口，注册与登录返回 Bearer token。
func RegisterAuthRoutes(router fiber.Router, opts AuthOptions) {
	if router == nil || opts.Authenticator == nil || opts.Guard == nil {
		return
	}
	authenticator := opts.Authenticator

	router.Post("/auth/signup", func(c fiber.Ctx) error {
		var in auth.NewUser
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return invalidBody()
		}
		session, err := authenticator.Issue(server.RequestContext(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	router.Post("/auth/login", func(c fiber.Ctx) error {
		var creds auth.Credentials
		if err := json.Unmarshal(c.Body(), &creds); err != nil {
			return invalidBody()
		}
		token, err := authenticator.Verify(server.RequestContext(c), creds)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"token": token})
	})

	router.Post("/auth/logout", opts.Guard, func(c fiber.Ctx) error {
		claims, ok := server.Claims(c)
		if !ok {
			return auth.ErrUnauthenticated
		}
		if err := authenticator.Revoke(server.RequestContext(c), claims); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "logged out"})
	})
}

func invalidBody() error {
	return &content.ValidationError{Fields: []content.FieldError{{Field: "body", Reason: "must be a JSON object"}}}
}
