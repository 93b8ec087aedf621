package cache

import (
	"time"
)

// CacheService is the blocking/rate-limit cache used by the fetch
// layer. A key present in the cache means requests to that retailer
// are currently blocked.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
