package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值、环境变量覆盖与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 密钥类字段允许通过环境变量注入，避免写入配置文件。
	if err := env.Parse(&cfg.Auth); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyRedisDefaults(&cfg.Redis)
	applyAuthDefaults(&cfg.Auth)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDB, err := filepath.Abs(cfg.Global.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析数据库路径: %w", err)
	}
	cfg.Global.DatabasePath = absDB

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("DatabasePath", "./storage/content.db")
	v.SetDefault("CacheBackend", CacheBackendMemory)
	v.SetDefault("CacheTTL", 3600)
	v.SetDefault("CacheMaxEntries", 10000)
	v.SetDefault("CacheSingleFlight", false)
	v.SetDefault("SearchLimit", 50)
	v.SetDefault("Redis.KeyPrefix", "content-hub:")
	v.SetDefault("Redis.DialTimeout", "5s")
	v.SetDefault("Auth.Issuer", "content-hub")
	v.SetDefault("Auth.TokenTTL", "24h")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	g.CacheBackend = strings.ToLower(strings.TrimSpace(g.CacheBackend))
	if g.CacheBackend == "" {
		g.CacheBackend = CacheBackendMemory
	}
	if g.CacheTTL.DurationValue() == 0 {
		g.CacheTTL = Duration(time.Hour)
	}
	if g.CacheMaxEntries == 0 {
		g.CacheMaxEntries = 10000
	}
	if g.SearchLimit == 0 {
		g.SearchLimit = 50
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.KeyPrefix == "" {
		r.KeyPrefix = "content-hub:"
	}
	if r.DialTimeout.DurationValue() == 0 {
		r.DialTimeout = Duration(5 * time.Second)
	}
}

func applyAuthDefaults(a *AuthConfig) {
	a.Issuer = strings.TrimSpace(a.Issuer)
	if a.Issuer == "" {
		a.Issuer = "content-hub"
	}
	if a.TokenTTL.DurationValue() == 0 {
		a.TokenTTL = Duration(24 * time.Hour)
	}
	if a.BcryptCost == 0 {
		a.BcryptCost = bcrypt.DefaultCost
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
