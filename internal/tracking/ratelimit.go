package tracking

import (
	"sync"
	"time"
)

type window struct {
	current int
	resetAt time.Time
}

// ProviderLimiter is a fixed-window request counter per vendor provider. The
// window resets at fixed boundaries rather than sliding. A false return means
// "do not call the vendor now"; the client treats it as a fallback trigger,
// not an error. Counter updates are guarded by a mutex because multiple
// lookups may run concurrently in one process.
type ProviderLimiter struct {
	mu      sync.Mutex
	max     int
	per     time.Duration
	windows map[string]*window

	now func() time.Time
}

// NewProviderLimiter allows max requests per provider within each window.
func NewProviderLimiter(max int, per time.Duration) *ProviderLimiter {
	if max <= 0 {
		max = 10
	}
	if per <= 0 {
		per = time.Minute
	}
	return &ProviderLimiter{
		max:     max,
		per:     per,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow consumes one slot from the provider's current window when available.
func (l *ProviderLimiter) Allow(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[provider]
	if !ok {
		w = &window{}
		l.windows[provider] = w
	}
	if now.After(w.resetAt) {
		w.current = 0
		w.resetAt = now.Add(l.per)
	}
	if w.current >= l.max {
		return false
	}
	w.current++
	return true
}
