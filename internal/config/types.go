package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

const (
	// CacheBackendMemory 使用进程内 TTL 缓存与版本表。
	CacheBackendMemory = "memory"
	// CacheBackendRedis 使用 Redis 保存载荷与版本计数器。
	CacheBackendRedis = "redis"
)

// GlobalConfig 描述全局运行时行为，所有请求共享同一份参数。
type GlobalConfig struct {
	ListenPort        int      `mapstructure:"ListenPort"`
	LogLevel          string   `mapstructure:"LogLevel"`
	LogFilePath       string   `mapstructure:"LogFilePath"`
	LogMaxSize        int      `mapstructure:"LogMaxSize"`
	LogMaxBackups     int      `mapstructure:"LogMaxBackups"`
	LogCompress       bool     `mapstructure:"LogCompress"`
	DatabasePath      string   `mapstructure:"DatabasePath"`
	CacheBackend      string   `mapstructure:"CacheBackend"`
	CacheTTL          Duration `mapstructure:"CacheTTL"`
	CacheMaxEntries   int      `mapstructure:"CacheMaxEntries"`
	CacheSingleFlight bool     `mapstructure:"CacheSingleFlight"`
	SearchLimit       int      `mapstructure:"SearchLimit"`
}

// RedisConfig 仅在 CacheBackend = "redis" 时生效。
type RedisConfig struct {
	URL         string   `mapstructure:"URL"`
	KeyPrefix   string   `mapstructure:"KeyPrefix"`
	DialTimeout Duration `mapstructure:"DialTimeout"`
}

// AuthConfig 决定令牌签发与密码哈希参数。Secret 可由环境变量覆盖。
type AuthConfig struct {
	Secret     string   `mapstructure:"Secret" env:"CONTENT_HUB_AUTH_SECRET"`
	Issuer     string   `mapstructure:"Issuer" env:"CONTENT_HUB_AUTH_ISSUER"`
	TokenTTL   Duration `mapstructure:"TokenTTL"`
	BcryptCost int      `mapstructure:"BcryptCost"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Redis  RedisConfig  `mapstructure:"Redis"`
	Auth   AuthConfig   `mapstructure:"Auth"`
}

// UsesRedis 表示缓存与版本表是否托管在 Redis 上。
func (c *Config) UsesRedis() bool {
	return c != nil && c.Global.CacheBackend == CacheBackendRedis
}

// Summary 输出启动/校验日志使用的配置摘要，不包含任何密钥。
func (c *Config) Summary() map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"listen_port":   c.Global.ListenPort,
		"database":      c.Global.DatabasePath,
		"cache_backend": c.Global.CacheBackend,
		"cache_ttl":     c.Global.CacheTTL.DurationValue().String(),
		"single_flight": c.Global.CacheSingleFlight,
		"search_limit":  c.Global.SearchLimit,
	}
}
