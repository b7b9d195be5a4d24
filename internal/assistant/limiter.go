package assistant

import (
	"sync"
	"time"
)

// limiter is a fixed-window per-key rate limiter. Windows are anchored
// to the first request in each period, which is close enough for an
// abuse guard on a chat endpoint.
type limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	entries map[string]*windowEntry
}

type windowEntry struct {
	start time.Time
	count int
}

func newLimiter(limit int, window time.Duration, now func() time.Time) *limiter {
	if now == nil {
		now = time.Now
	}
	return &limiter{
		limit:   limit,
		window:  window,
		now:     now,
		entries: make(map[string]*windowEntry),
	}
}

// allow reports whether key may make another request, counting it if so.
func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.start) >= l.window {
		// Sweep stale entries once the map grows.
		if len(l.entries) > 1024 {
			for k, v := range l.entries {
				if now.Sub(v.start) >= l.window {
					delete(l.entries, k)
				}
			}
		}
		l.entries[key] = &windowEntry{start: now, count: 1}
		return true
	}
	if e.count >= l.limit {
		return false
	}
	e.count++
	return true
}
