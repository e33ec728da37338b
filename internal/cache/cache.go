// Package cache provides a small generic LRU used by the budget engine to
// memoize per-category aggregates between queries in one process.
package cache

// Cache is a generic keyed cache.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge removes every entry. Mutating operations call this so stale
	// aggregates never survive a write.
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}
