package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/logging"
)

// AppOptions controls how the Fiber application is built.
type AppOptions struct {
	Logger *logrus.Logger
}

const (
	contextKeyRequestID = "_contenthub_request_id"
	contextKeyClaims    = "_contenthub_claims"

	headerRequestID = "X-Request-ID"
)

// NewApp builds a Fiber application with recovery, request-id and access
// logging middleware and the JSON error handler. Callers register routes.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	errorHandler := ErrorHandler(opts.Logger)
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		JSONEncoder:   json.Marshal,
		JSONDecoder:   json.Unmarshal,
		ErrorHandler:  errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger, errorHandler))

	return app, nil
}

// requestContextMiddleware 生成请求 ID（沿用客户端传入的 X-Request-ID），并记录访问日志。
func requestContextMiddleware(logger *logrus.Logger, errorHandler fiber.ErrorHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := c.Get(headerRequestID)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		} else {
			// 请求头为零拷贝视图，写入 context 前复制。
			reqID = strings.Clone(reqID)
		}
		c.Locals(contextKeyRequestID, reqID)
		c.Set(headerRequestID, reqID)

		started := time.Now()
		err := c.Next()
		if err != nil {
			// Render now so the access log sees the final status.
			if handlerErr := errorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.WithFields(logrus.Fields{
			"action":      "http_request",
			"request_id":  reqID,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(started).Milliseconds(),
		}).Debug("request served")
		return nil
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// RequestContext returns the request's context carrying its request id, for
// passing into the service layer.
func RequestContext(c fiber.Ctx) context.Context {
	return logging.WithRequestID(c.Context(), RequestID(c))
}
