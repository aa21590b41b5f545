// Package rate keeps one token bucket per client so a single caller
// cannot burn the whole request budget.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	rps    rate.Limit
	burst  int
	expiry time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiter allows rps requests per second with the given burst per
// client id. Buckets idle longer than expiry are swept in the background.
func NewLimiter(rps float64, burst int, expiry time.Duration) *Limiter {
	l := Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		expiry:  expiry,
		buckets: make(map[string]*bucket),
	}
	go l.sweep()
	return &l
}

// Check reports whether the client identified by id may proceed.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[id]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[id] = b
	}
	b.seen = time.Now()

	return b.lim.Allow()
}

func (l *Limiter) sweep() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()

	for range tick.C {
		l.mu.Lock()
		for id, b := range l.buckets {
			if time.Since(b.seen) > l.expiry {
				delete(l.buckets, id)
			}
		}
		l.mu.Unlock()
	}
}

// Every converts an interval between requests into a per-second rate.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
