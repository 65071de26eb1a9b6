package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/content-hub/internal/logging"
	"github.com/any-hub/content-hub/internal/metrics"
)

// Payload 是一次交付请求的结果：key → value。
type Payload map[string]string

// Producer 在缓存未命中时计算载荷，通常是一次 ContentStore 查询。
type Producer func(ctx context.Context) (Payload, error)

// DeliveryCache 负责读穿缓存：命中直接返回，未命中调用 Producer 并写回。
//
// 默认情况下同一 key 的并发冷读可能各自执行一次 Producer（best-effort，
// 而非严格的 at-most-once）。开启 singleFlight 后，同一进程内的并发冷读
// 会合并为一次 Producer 调用；跨进程仍可能重复。
//
// 后端故障不会导致请求失败：读失败视为未命中，写失败仅记录日志。
type DeliveryCache struct {
	backend Backend
	logger  *logrus.Logger
	metrics *metrics.Metrics
	group   *singleflight.Group
}

// DeliveryOptions 控制 DeliveryCache 的可选行为。
type DeliveryOptions struct {
	Logger       *logrus.Logger
	Metrics      *metrics.Metrics
	SingleFlight bool
}

// NewDeliveryCache 基于后端构造交付缓存。
func NewDeliveryCache(backend Backend, opts DeliveryOptions) *DeliveryCache {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New("content_hub")
	}
	dc := &DeliveryCache{
		backend: backend,
		logger:  logger,
		metrics: m,
	}
	if opts.SingleFlight {
		dc.group = &singleflight.Group{}
	}
	return dc
}

// BuildKey 是包级 BuildKey 的便捷方法。
func (d *DeliveryCache) BuildKey(version int64, locale, group, tag string) string {
	return BuildKey(version, locale, group, tag)
}

// GetOrCompute 返回 key 的载荷；hit 表示是否来自缓存。
// Producer 的错误（例如数据库不可用）会原样返回。
func (d *DeliveryCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, producer Producer) (Payload, bool, error) {
	if payload, ok := d.lookup(ctx, key); ok {
		return payload, true, nil
	}

	if d.group == nil {
		payload, err := d.compute(ctx, key, ttl, producer)
		return payload, false, err
	}

	// 同一轮计算被多个请求共享，不能随发起者的请求取消而失败。
	flightCtx := context.WithoutCancel(ctx)
	value, err, _ := d.group.Do(key, func() (interface{}, error) {
		// 排队期间前一轮计算可能已写回缓存。
		if payload, ok := d.lookup(flightCtx, key); ok {
			return flightResult{payload: payload, hit: true}, nil
		}
		payload, err := d.compute(flightCtx, key, ttl, producer)
		return flightResult{payload: payload}, err
	})
	if err != nil {
		return nil, false, err
	}
	result, _ := value.(flightResult)
	return clonePayload(result.payload), result.hit, nil
}

type flightResult struct {
	payload Payload
	hit     bool
}

func (d *DeliveryCache) lookup(ctx context.Context, key string) (Payload, bool) {
	if d.backend == nil {
		return nil, false
	}
	raw, err := d.backend.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return nil, false
	default:
		d.degraded("get", key, err)
		return nil, false
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		d.degraded("decode", key, err)
		return nil, false
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, true
}

func (d *DeliveryCache) compute(ctx context.Context, key string, ttl time.Duration, producer Producer) (Payload, error) {
	started := time.Now()
	d.metrics.ProducerRuns.Inc()
	payload, err := producer(ctx)
	d.metrics.ProducerLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = Payload{}
	}

	if d.backend == nil {
		return payload, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		d.degraded("encode", key, err)
		return payload, nil
	}
	if err := d.backend.Set(ctx, key, encoded, ttl); err != nil {
		d.degraded("set", key, err)
	}
	return payload, nil
}

func (d *DeliveryCache) degraded(op, key string, err error) {
	d.metrics.CacheDegraded.WithLabelValues(op).Inc()
	d.logger.WithError(err).WithFields(logrus.Fields{
		"action":    "cache_degraded",
		"op":        op,
		"cache_key": key,
	}).Warn("cache backend failure, serving from store")
}

func clonePayload(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
