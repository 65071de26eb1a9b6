// Package cache holds the process-wide delivery cache state: a Backend for
// encoded payloads (in-memory TTL map or Redis), a VersionRegistry mapping
// each locale to a monotonically increasing version, and the DeliveryCache
// that composes them. Invalidation never deletes keys; bumping a locale's
// version moves future reads to a new key prefix and old entries age out
// through the backend's TTL.
//
// Backend failures are absorbed here: a read or write error is logged as
// cache_degraded and the producer result is served directly. Producer errors
// are returned unchanged.
package cache
