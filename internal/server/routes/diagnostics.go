package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/content-hub/internal/cache"
	"github.com/any-hub/content-hub/internal/metrics"
	"github.com/any-hub/content-hub/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/status 与 /-/metrics，供 SRE 查看缓存后端与各 locale 的版本号。
func RegisterDiagnosticsRoutes(app *fiber.App, state *cache.State, m *metrics.Metrics) {
	if app == nil || state == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		versions := state.KnownVersions()
		if versions == nil {
			versions = []cache.LocaleVersion{}
		}
		return c.JSON(fiber.Map{
			"version":       version.Full(),
			"cache_backend": state.Backend,
			"versions":      versions,
		})
	})

	if m != nil {
		handler := promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
		app.Get("/-/metrics", adaptor.HTTPHandler(handler))
	}
}
