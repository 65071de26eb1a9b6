package routes

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/server"
)

// ContentService is the content core as seen by the HTTP layer.
type ContentService interface {
	GetContentForDelivery(ctx context.Context, locale string, filter content.DeliveryFilter) (content.DeliveryResult, error)
	StoreContent(ctx context.Context, in content.StoreInput) (content.Record, error)
	Search(ctx context.Context, filter content.SearchFilter) ([]content.Record, error)
	FindByID(ctx context.Context, id int64) (content.Record, error)
}

// ContentOptions wires RegisterContentRoutes.
type ContentOptions struct {
	Service ContentService
	// Guard runs before write, search and detail handlers, typically
	// server.RequireAuth.
	Guard fiber.Handler
	// MaxAge is advertised to downstream HTTP caches on delivery responses.
	MaxAge time.Duration
}

// RegisterContentRoutes 注册 /content 下的投放、写入、搜索与详情接口。
// 静态路径需先于 /content/:locale 注册。
// 路径参数与查询参数均为零拷贝视图，传入服务层前统一复制。
func RegisterContentRoutes(router fiber.Router, opts ContentOptions) {
	if router == nil || opts.Service == nil || opts.Guard == nil {
		return
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = content.DefaultDeliveryTTL
	}
	cacheControl := fmt.Sprintf("public, max-age=%d", int64(opts.MaxAge/time.Second))
	svc := opts.Service

	router.Get("/content/search", opts.Guard, func(c fiber.Ctx) error {
		records, err := svc.Search(server.RequestContext(c), content.SearchFilter{
			Q:      strings.Clone(c.Query("q")),
			Tag:    strings.Clone(c.Query("tag")),
			Locale: strings.Clone(c.Query("locale")),
		})
		if err != nil {
			return err
		}
		return c.JSON(records)
	})

	router.Get("/content/detail/:id", opts.Guard, func(c fiber.Ctx) error {
		id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
		if err != nil {
			return &content.ValidationError{Fields: []content.FieldError{{Field: "id", Reason: "must be a positive integer"}}}
		}
		record, err := svc.FindByID(server.RequestContext(c), id)
		if err != nil {
			return err
		}
		return c.JSON(record)
	})

	router.Post("/content", opts.Guard, func(c fiber.Ctx) error {
		var in content.StoreInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return invalidBody()
		}
		record, err := svc.StoreContent(server.RequestContext(c), in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(record)
	})

	router.Get("/content/:locale", func(c fiber.Ctx) error {
		locale := strings.Clone(c.Params("locale"))
		result, err := svc.GetContentForDelivery(server.RequestContext(c), locale, content.DeliveryFilter{
			Tag:   strings.Clone(c.Query("tag")),
			Group: strings.Clone(c.Query("group")),
		})
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderCacheControl, cacheControl)
		c.Set(fiber.HeaderVary, "Accept-Encoding, Authorization")
		c.Set("X-Content-Version", strconv.FormatInt(result.Version, 10))
		if result.CacheHit {
			c.Set("X-Content-Cache", "hit")
		} else {
			c.Set("X-Content-Cache", "miss")
		}
		return c.JSON(result.Content)
	})
}
