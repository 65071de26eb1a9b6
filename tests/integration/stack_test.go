package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/auth"
	"github.com/any-hub/content-hub/internal/cache"
	"github.com/any-hub/content-hub/internal/config"
	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/metrics"
	"github.com/any-hub/content-hub/internal/server"
	"github.com/any-hub/content-hub/internal/server/routes"
	"github.com/any-hub/content-hub/internal/storage/sqlite"
)

// countingStore 统计 QueryByLocale 的调用次数，用于观察缓存是否命中。
type countingStore struct {
	*sqlite.Store
	queries atomic.Int64
	delay   time.Duration
}

func (s *countingStore) QueryByLocale(ctx context.Context, locale string, filter content.DeliveryFilter) (map[string]string, error) {
	s.queries.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.Store.QueryByLocale(ctx, locale, filter)
}

type stack struct {
	app   *fiber.App
	store *countingStore
	state *cache.State
}

type stackOptions struct {
	singleFlight bool
	queryDelay   time.Duration
}

// newStack 按生产顺序组装 SQLite → 内存缓存 → ContentService/Auth → Fiber。
func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Global: config.GlobalConfig{
			DatabasePath:      filepath.Join(t.TempDir(), "content.db"),
			CacheBackend:      config.CacheBackendMemory,
			CacheTTL:          config.Duration(time.Hour),
			CacheMaxEntries:   1000,
			CacheSingleFlight: opts.singleFlight,
			SearchLimit:       50,
		},
	}

	db, err := sqlite.Open(context.Background(), cfg.Global.DatabasePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := &countingStore{Store: db, delay: opts.queryDelay}

	m := metrics.New("content_hub_it")
	state, err := cache.Open(context.Background(), cfg, logger, m)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })

	svc, err := content.NewService(store, state, content.Options{
		DeliveryTTL: cfg.Global.CacheTTL.DurationValue(),
		SearchLimit: cfg.Global.SearchLimit,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	provider, err := auth.NewProvider(db, auth.Options{
		Secret:     "integration-secret-0123456789",
		BcryptCost: 4,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	routes.RegisterDiagnosticsRoutes(app, state, m)
	guard := server.RequireAuth(provider)
	v1 := app.Group("/v1")
	routes.RegisterAuthRoutes(v1, routes.AuthOptions{Authenticator: provider, Guard: guard})
	routes.RegisterContentRoutes(v1, routes.ContentOptions{
		Service: svc,
		Guard:   guard,
		MaxAge:  cfg.Global.CacheTTL.DurationValue(),
	})
	return &stack{app: app, store: store, state: state}
}

// send 不依赖 *testing.T，可在并发 goroutine 中调用。
func (s *stack) send(method, path, token string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, raw, nil
}

func (s *stack) request(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	resp, raw, err := s.send(method, path, token, body)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return resp, raw
}

func (s *stack) login(t *testing.T) string {
	t.Helper()
	resp, raw := s.request(t, "POST", "/v1/auth/signup", "", map[string]string{
		"name": "Editor", "email": "editor@example.com", "password": "integration-pass",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", resp.StatusCode, raw)
	}
	resp, raw = s.request(t, "POST", "/v1/auth/login", "", map[string]string{
		"email": "editor@example.com", "password": "integration-pass",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", resp.StatusCode, raw)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Token == "" {
		t.Fatalf("login token missing: %s", raw)
	}
	return payload.Token
}

func (s *stack) put(t *testing.T, token string, body map[string]any) content.Record {
	t.Helper()
	resp, raw := s.request(t, "POST", "/v1/content", token, body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("store %v: expected 201, got %d (%s)", body, resp.StatusCode, raw)
	}
	var record content.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return record
}

func (s *stack) deliver(t *testing.T, path string) (map[string]string, *http.Response) {
	t.Helper()
	resp, raw := s.request(t, "GET", path, "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("deliver %s: expected 200, got %d (%s)", path, resp.StatusCode, raw)
	}
	var payload map[string]string
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode delivery: %v", err)
	}
	return payload, resp
}
