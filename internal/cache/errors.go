package cache

import "fmt"

// CacheError 表示缓存后端的一次失败操作。交付路径会把它降级为直接读库，
// 因此它只出现在日志与指标中，不会返回给调用方。
type CacheError struct {
	Op    string
	Key   string
	Cause error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("cache %s: %v", e.Op, e.Cause)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}
