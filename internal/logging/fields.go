package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// DeliveryFields 提供 locale/版本/命中状态字段，供内容读取日志复用。
func DeliveryFields(requestID, locale string, version int64, cacheKey string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":     "content_delivery",
		"request_id": requestID,
		"locale":     locale,
		"version":    version,
		"cache_key":  cacheKey,
		"cache_hit":  cacheHit,
	}
}

// WriteFields 描述一次内容写入及其触发的版本递增。
func WriteFields(requestID, locale, key string, newVersion int64) logrus.Fields {
	return logrus.Fields{
		"action":      "content_store",
		"request_id":  requestID,
		"locale":      locale,
		"key":         key,
		"new_version": newVersion,
	}
}
