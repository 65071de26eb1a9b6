package content

import (
	"context"
	"time"
)

// Record is one translation string for a (key, locale) pair.
type Record struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Locale    string    `json:"locale"`
	Value     string    `json:"value"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether the record carries tag exactly.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// StoreInput is the write payload. Nil fields were absent from the request,
// which is reported differently from a present but empty value.
type StoreInput struct {
	Key    *string  `json:"key"`
	Locale *string  `json:"locale"`
	Value  *string  `json:"value"`
	Tags   []string `json:"tags"`
}

// DeliveryFilter narrows a delivery read. Empty fields mean "all".
type DeliveryFilter struct {
	Tag   string
	Group string
}

// SearchFilter is the typed form of the search query string. Empty fields
// are treated as absent.
type SearchFilter struct {
	Q      string `json:"q"`
	Tag    string `json:"tag"`
	Locale string `json:"locale"`
}

// DeliveryResult is the outcome of a delivery read.
type DeliveryResult struct {
	Locale   string            `json:"locale"`
	Version  int64             `json:"version"`
	CacheKey string            `json:"-"`
	CacheHit bool              `json:"-"`
	Content  map[string]string `json:"content"`
}

// Store is the durable system of record for content rows. Implementations
// must enforce (key, locale) uniqueness, including under concurrent upserts.
type Store interface {
	// UpsertByKeyLocale creates the record or updates value and tags of the
	// existing one.
	UpsertByKeyLocale(ctx context.Context, key, locale, value string, tags []string) (Record, error)

	// QueryByLocale returns key → value for records in locale, keeping only
	// records tagged filter.Tag and whose key starts with filter.Group when
	// those are set.
	QueryByLocale(ctx context.Context, locale string, filter DeliveryFilter) (map[string]string, error)

	// SearchRecords returns at most limit records, newest first. Locale is an
	// AND filter; q and tag are OR'ed with each other.
	SearchRecords(ctx context.Context, filter SearchFilter, limit int) ([]Record, error)

	// FindByID returns ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id int64) (Record, error)
}

// String returns a pointer to s, for building StoreInput literals.
func String(s string) *string {
	return &s
}
