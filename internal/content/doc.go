// Package content implements locale content delivery: a read-through cache
// keyed by a per-locale version counter, write-triggered invalidation, and an
// uncached search over the content store.
//
// Reads build a key from (version, locale, group, tag) and consult the
// delivery cache. Writes upsert the record and then bump the locale version,
// which makes every previously cached payload for that locale unreachable.
// Stale payloads are never deleted; they expire through the cache TTL.
//
// Known weak points:
//   - Concurrent cold reads of one key may each query the store unless the
//     cache was built with single-flight enabled, and even then only within
//     one process.
//   - The version bump is not transactional with the store write. If the
//     bump fails (or the process dies) after the upsert commits, cached
//     payloads for that locale stay stale until their TTL expires.
package content
