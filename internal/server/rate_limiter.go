package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window per-key counter. Good enough for the import
// endpoint, which sees a handful of uploads per day per operator.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*windowBucket
}

type windowBucket struct {
	openedAt time.Time
	count    int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowBucket),
	}
}

// Allow reports whether the caller identified by key may proceed. An empty
// key is always refused rather than letting unattributable callers share
// one bucket.
func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.buckets[key]
	if bucket == nil || now.Sub(bucket.openedAt) > r.window {
		r.dropLapsed(now)
		bucket = &windowBucket{openedAt: now}
		r.buckets[key] = bucket
	}
	if bucket.count >= r.limit {
		return false
	}
	bucket.count++
	return true
}

// dropLapsed removes buckets whose window has passed. Runs with mu held, at
// most once per rollover, so the map stays bounded by the number of
// distinct callers within one window.
func (r *rateLimiter) dropLapsed(now time.Time) {
	for key, bucket := range r.buckets {
		if now.Sub(bucket.openedAt) > r.window {
			delete(r.buckets, key)
		}
	}
}
