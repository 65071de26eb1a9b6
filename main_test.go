package main

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/config"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("CONTENT_HUB_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "--check-config"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" || !opts.checkOnly {
		t.Fatalf("flag 应高于环境变量，得到 %+v", opts)
	}

	t.Setenv("CONTENT_HUB_CONFIG", "")
	opts, err = parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认应为 config.toml，得到 %s", opts.configPath)
	}

	if _, err := parseCLIFlags([]string{"--unknown"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	t.Setenv("CONTENT_HUB_AUTH_SECRET", "")
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "加载配置失败") {
		t.Fatalf("stderr 应包含失败原因，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "content-hub") {
		t.Fatalf("version 输出应包含 content-hub 标识")
	}
}

func TestBuildServicesWiresHTTPApp(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfigFile(t, fmt.Sprintf(`
ListenPort = 5000
DatabasePath = "%s"
CacheBackend = "memory"

[Auth]
Secret = "main-test-secret-0123456789"
BcryptCost = 4
`, filepath.Join(dir, "db", "content.db")))

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc, err := buildServices(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("初始化服务失败: %v", err)
	}
	t.Cleanup(func() { svc.Close(logger) })

	app, err := newHTTPApp(svc, logger)
	if err != nil {
		t.Fatalf("构建 HTTP 服务失败: %v", err)
	}

	for path, want := range map[string]int{
		"/-/status":              200,
		"/v1/content/en":         200,
		"/v1/content/search?q=x": 401,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("请求 %s 失败: %v", path, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s 期望 %d，得到 %d", path, want, resp.StatusCode)
		}
	}
}
