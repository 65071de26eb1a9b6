package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fakeStore is an in-memory Store used by service tests. It counts queries
// so tests can assert cache behaviour.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	records []Record
	now     time.Time

	queries  int32
	queryErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeStore) queryCount() int {
	return int(atomic.LoadInt32(&f.queries))
}

func (f *fakeStore) UpsertByKeyLocale(_ context.Context, key, locale, value string, tags []string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Second)
	for i := range f.records {
		if f.records[i].Key == key && f.records[i].Locale == locale {
			f.records[i].Value = value
			f.records[i].Tags = append([]string(nil), tags...)
			f.records[i].UpdatedAt = f.now
			return f.records[i], nil
		}
	}
	f.nextID++
	rec := Record{
		ID:        f.nextID,
		Key:       key,
		Locale:    locale,
		Value:     value,
		Tags:      append([]string(nil), tags...),
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeStore) QueryByLocale(_ context.Context, locale string, filter DeliveryFilter) (map[string]string, error) {
	atomic.AddInt32(&f.queries, 1)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, rec := range f.records {
		if rec.Locale != locale {
			continue
		}
		if filter.Tag != "" && !rec.HasTag(filter.Tag) {
			continue
		}
		if filter.Group != "" && !strings.HasPrefix(rec.Key, filter.Group) {
			continue
		}
		out[rec.Key] = rec.Value
	}
	return out, nil
}

func (f *fakeStore) SearchRecords(_ context.Context, filter SearchFilter, limit int) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	q := strings.ToLower(filter.Q)
	for _, rec := range f.records {
		if filter.Locale != "" && rec.Locale != filter.Locale {
			continue
		}
		if filter.Q != "" || filter.Tag != "" {
			qMatch := filter.Q != "" && (strings.Contains(strings.ToLower(rec.Key), q) || strings.Contains(strings.ToLower(rec.Value), q))
			tagMatch := filter.Tag != "" && rec.HasTag(filter.Tag)
			if !qMatch && !tagMatch {
				continue
			}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (f *fakeStore) count(key, locale string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.records {
		if rec.Key == key && rec.Locale == locale {
			n++
		}
	}
	return n
}

var _ Store = (*fakeStore)(nil)
