package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	minSecretLength = 16
	maxSearchLimit  = 500
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", "无法识别的日志级别")
		}
	}
	if g.DatabasePath == "" {
		return newFieldError("Global.DatabasePath", "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.CacheTTL", "必须大于 0")
	}
	if g.CacheMaxEntries < 0 {
		return newFieldError("Global.CacheMaxEntries", "不能为负数")
	}
	if g.SearchLimit <= 0 || g.SearchLimit > maxSearchLimit {
		return newFieldError("Global.SearchLimit", fmt.Sprintf("必须在 1-%d", maxSearchLimit))
	}

	switch g.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if err := validateRedisURL(c.Redis.URL); err != nil {
			return fmt.Errorf("Redis.URL: %w", err)
		}
		if c.Redis.DialTimeout.DurationValue() <= 0 {
			return newFieldError("Redis.DialTimeout", "必须大于 0")
		}
	default:
		return newFieldError("Global.CacheBackend", "仅支持 memory|redis")
	}

	a := c.Auth
	if len(a.Secret) < minSecretLength {
		return newFieldError("Auth.Secret", fmt.Sprintf("长度至少 %d 个字符", minSecretLength))
	}
	if a.TokenTTL.DurationValue() <= 0 {
		return newFieldError("Auth.TokenTTL", "必须大于 0")
	}
	if a.BcryptCost != 0 && (a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost) {
		return newFieldError("Auth.BcryptCost", fmt.Sprintf("必须在 %d-%d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	return nil
}

func validateRedisURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 Redis 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return fmt.Errorf("仅支持 redis/rediss: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("Redis 地址缺少 Host: %s", raw)
	}
	return nil
}
