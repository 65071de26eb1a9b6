package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/auth"
	"github.com/any-hub/content-hub/internal/content"
)

// ErrorHandler maps domain errors to HTTP responses. Unclassified errors
// become 500 internal_error and are logged with the request id.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var verr *content.ValidationError
		switch {
		case errors.As(err, &verr):
			fields := make(map[string]string, len(verr.Fields))
			for _, f := range verr.Fields {
				if _, seen := fields[f.Field]; !seen {
					fields[f.Field] = f.Reason
				}
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "validation_failed",
				"fields": fields,
			})
		case errors.Is(err, content.ErrNotFound):
			return renderError(c, fiber.StatusNotFound, "not_found")
		case errors.Is(err, auth.ErrUnauthenticated):
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="content-hub"`)
			return renderError(c, fiber.StatusUnauthorized, "unauthenticated")
		case errors.Is(err, auth.ErrInvalidCredentials):
			return renderError(c, fiber.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, auth.ErrUserExists):
			return renderError(c, fiber.StatusConflict, "user_exists")
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return renderError(c, fiberErr.Code, codeForStatus(fiberErr.Code))
		}

		logger.WithFields(logrus.Fields{
			"action":     "request_failed",
			"request_id": RequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"error":      err.Error(),
		}).Error("request failed")
		return renderError(c, fiber.StatusInternalServerError, "internal_error")
	}
}

func renderError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusRequestEntityTooLarge:
		return "body_too_large"
	default:
		if status >= 500 {
			return "internal_error"
		}
		return "request_failed"
	}
}
