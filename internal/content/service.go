package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/content-hub/internal/cache"
	"github.com/any-hub/content-hub/internal/logging"
	"github.com/any-hub/content-hub/internal/metrics"
)

const (
	// DefaultDeliveryTTL is how long a delivery payload stays cached.
	DefaultDeliveryTTL = time.Hour
	// DefaultSearchLimit caps search results.
	DefaultSearchLimit = 50
)

// Options tunes a Service. Zero values fall back to the defaults above.
type Options struct {
	DeliveryTTL time.Duration
	SearchLimit int
	Logger      *logrus.Logger
	Metrics     *metrics.Metrics
}

// Service orchestrates the content store and the shared cache state.
type Service struct {
	store       Store
	state       *cache.State
	ttl         time.Duration
	searchLimit int
	logger      *logrus.Logger
	metrics     *metrics.Metrics
}

// NewService wires a Service. The cache state is shared by reference across
// all request handlers.
func NewService(store Store, state *cache.State, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("content store is required")
	}
	if state == nil || state.Versions == nil || state.Delivery == nil {
		return nil, errors.New("cache state is required")
	}
	if opts.DeliveryTTL <= 0 {
		opts.DeliveryTTL = DefaultDeliveryTTL
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("content_hub")
	}
	return &Service{
		store:       store,
		state:       state,
		ttl:         opts.DeliveryTTL,
		searchLimit: opts.SearchLimit,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// GetContentForDelivery returns key → value for locale, served from the
// delivery cache when the current locale version has been computed before.
// A locale without records yields an empty map.
func (s *Service) GetContentForDelivery(ctx context.Context, locale string, filter DeliveryFilter) (DeliveryResult, error) {
	normalized, err := NormalizeLocale(locale)
	if err != nil {
		return DeliveryResult{}, newValidationError("locale", "is not a valid language tag")
	}
	filter.Tag = strings.TrimSpace(filter.Tag)
	filter.Group = strings.TrimSpace(filter.Group)

	producer := func(ctx context.Context) (cache.Payload, error) {
		rows, err := s.store.QueryByLocale(ctx, normalized, filter)
		if err != nil {
			return nil, err
		}
		return cache.Payload(rows), nil
	}

	version, err := s.state.Versions.GetVersion(ctx, normalized)
	if err != nil {
		// 版本表不可用时无法构造安全的 key，直接读库。
		s.metrics.CacheDegraded.WithLabelValues("version_get").Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":     "cache_degraded",
			"request_id": logging.RequestIDFrom(ctx),
			"op":         "version_get",
			"locale":     normalized,
		}).Warn("version registry unavailable, serving from store")
		payload, err := producer(ctx)
		if err != nil {
			return DeliveryResult{}, err
		}
		return DeliveryResult{Locale: normalized, Content: payload}, nil
	}

	key := s.state.Delivery.BuildKey(version, normalized, filter.Group, filter.Tag)
	payload, hit, err := s.state.Delivery.GetOrCompute(ctx, key, s.ttl, producer)
	if err != nil {
		return DeliveryResult{}, err
	}
	if hit {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
	}
	s.logger.WithFields(logging.DeliveryFields(logging.RequestIDFrom(ctx), normalized, version, key, hit)).Debug("content delivered")

	return DeliveryResult{
		Locale:   normalized,
		Version:  version,
		CacheKey: key,
		CacheHit: hit,
		Content:  payload,
	}, nil
}

// StoreContent upserts a record and then bumps its locale version. The bump
// runs only after the store write has returned, so a reader that observes
// the new version always reads post-write data.
//
// A failed bump is logged but not returned: the write has committed and the
// locale's cached payloads stay stale until their TTL expires.
func (s *Service) StoreContent(ctx context.Context, in StoreInput) (Record, error) {
	fields, err := validateStoreInput(in)
	if err != nil {
		return Record{}, err
	}

	record, err := s.store.UpsertByKeyLocale(ctx, fields.key, fields.locale, fields.value, fields.tags)
	if err != nil {
		return Record{}, err
	}

	version, err := s.state.Versions.BumpVersion(ctx, fields.locale)
	if err != nil {
		s.metrics.CacheDegraded.WithLabelValues("version_bump").Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":     "cache_invalidation_failed",
			"request_id": logging.RequestIDFrom(ctx),
			"locale":     fields.locale,
			"key":        fields.key,
		}).Error("content stored but locale version not bumped")
		return record, nil
	}
	s.metrics.VersionBumps.WithLabelValues(fields.locale).Inc()
	s.logger.WithFields(logging.WriteFields(logging.RequestIDFrom(ctx), fields.locale, fields.key, version)).Debug("content stored")
	return record, nil
}

// Search runs a live query against the store, bypassing the delivery cache.
// A record matches when the locale filter (if any) matches AND either the q
// clause or the tag clause matches. An empty result is not an error.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Record, error) {
	validated, err := validateSearchFilter(filter)
	if err != nil {
		return nil, err
	}
	s.metrics.SearchRequests.Inc()

	records, err := s.store.SearchRecords(ctx, validated, s.searchLimit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// FindByID returns the record or ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (Record, error) {
	if id <= 0 {
		return Record{}, newValidationError("id", "must be a positive integer")
	}
	return s.store.FindByID(ctx, id)
}
