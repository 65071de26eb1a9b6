package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/auth"
	"github.com/any-hub/content-hub/internal/cache"
	"github.com/any-hub/content-hub/internal/config"
	"github.com/any-hub/content-hub/internal/content"
	"github.com/any-hub/content-hub/internal/logging"
	"github.com/any-hub/content-hub/internal/metrics"
	"github.com/any-hub/content-hub/internal/server"
	"github.com/any-hub/content-hub/internal/server/routes"
	"github.com/any-hub/content-hub/internal/storage/sqlite"
	"github.com/any-hub/content-hub/internal/version"
)

const shutdownTimeout = 10 * time.Second

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		for k, v := range cfg.Summary() {
			fields[k] = v
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动顺序：配置 → SQLite → 缓存状态 → ContentService/Auth → Fiber，
	// 所有请求共享同一个缓存状态实例。
	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}
	defer svc.Close(logger)

	app, err := newHTTPApp(svc, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建 HTTP 服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	for k, v := range cfg.Summary() {
		fields[k] = v
	}
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(ctx, app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("content-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 CONTENT_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CONTENT_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// services 持有进程级依赖，退出时统一关闭。
type services struct {
	store   *sqlite.Store
	state   *cache.State
	content *content.Service
	auth    *auth.Provider
	metrics *metrics.Metrics
	ttl     time.Duration
}

func buildServices(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*services, error) {
	store, err := sqlite.Open(ctx, cfg.Global.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}

	m := metrics.New("content_hub")
	state, err := cache.Open(ctx, cfg, logger, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := &services{store: store, state: state, metrics: m, ttl: cfg.Global.CacheTTL.DurationValue()}
	svc.content, err = content.NewService(store, state, content.Options{
		DeliveryTTL: svc.ttl,
		SearchLimit: cfg.Global.SearchLimit,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		svc.Close(logger)
		return nil, err
	}

	svc.auth, err = auth.NewProvider(store, auth.Options{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		TokenTTL:   cfg.Auth.TokenTTL.DurationValue(),
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	if err != nil {
		svc.Close(logger)
		return nil, err
	}
	return svc, nil
}

// Close 先关缓存再关数据库，错误只记录不返回。
func (s *services) Close(logger *logrus.Logger) {
	if s == nil {
		return
	}
	if err := s.state.Close(); err != nil {
		logger.WithError(err).WithField("action", "shutdown").Warn("关闭缓存失败")
	}
	if err := s.store.Close(); err != nil {
		logger.WithError(err).WithField("action", "shutdown").Warn("关闭数据库失败")
	}
}

func newHTTPApp(svc *services, logger *logrus.Logger) (*fiber.App, error) {
	app, err := server.NewApp(server.AppOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	routes.RegisterDiagnosticsRoutes(app, svc.state, svc.metrics)
	guard := server.RequireAuth(svc.auth)
	v1 := app.Group("/v1")
	routes.RegisterAuthRoutes(v1, routes.AuthOptions{
		Authenticator: svc.auth,
		Guard:         guard,
	})
	routes.RegisterContentRoutes(v1, routes.ContentOptions{
		Service: svc.content,
		Guard:   guard,
		MaxAge:  svc.ttl,
	})
	return app, nil
}

// serve 阻塞直到监听失败或收到退出信号；收到信号后在超时内优雅关闭。
func serve(ctx context.Context, app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.WithField("action", "shutdown").Info("收到退出信号，开始优雅关闭")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
