package handlers

import (
	"strings"
	"sync"
	"time"
)

// loginThrottle limits how often a single client may hit the credential
// endpoints. Allow reports whether the caller identified by key is still
// inside its budget for the current window.
type loginThrottle interface {
	Allow(key string) bool
}

// fixedWindowThrottle counts hits per client inside a fixed window. When the
// window rolls over the count starts fresh; there is no sliding behaviour.
type fixedWindowThrottle struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]throttleBucket
}

type throttleBucket struct {
	hits    int
	expires time.Time
}

// newLoginThrottle builds a fixed-window throttle. A non-positive limit or
// window disables throttling and returns nil; callers treat a nil throttle
// as always allowing.
func newLoginThrottle(limit int, window time.Duration, clock func() time.Time) loginThrottle {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowThrottle{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]throttleBucket),
	}
}

func (t *fixedWindowThrottle) Allow(key string) bool {
	if t == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket, ok := t.buckets[key]
	if !ok || now.After(bucket.expires) {
		t.buckets[key] = throttleBucket{hits: 1, expires: now.Add(t.window)}
		t.sweepLocked(now)
		return true
	}
	if bucket.hits >= t.limit {
		return false
	}
	bucket.hits++
	t.buckets[key] = bucket
	return true
}

// sweepLocked drops buckets whose window already ended so one noisy burst of
// distinct client addresses cannot grow the map forever.
func (t *fixedWindowThrottle) sweepLocked(now time.Time) {
	for key, bucket := range t.buckets {
		if now.After(bucket.expires) {
			delete(t.buckets, key)
		}
	}
}
