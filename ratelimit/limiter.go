package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 16

// Limiter counts hits per key in fixed windows. Keys are spread over shards
// by hash so unrelated callers rarely contend on the same mutex.
type Limiter struct {
	limit  int
	window time.Duration
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*counter
}

type counter struct {
	start time.Time
	hits  int
}

// Decision is the outcome of one hit.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{limit: limit, window: window, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string]*counter)}
	}
	return l
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) shardFor(key string) *shard {
	return l.shards[xxhash.Sum64String(key)%shardCount]
}

// Allow records a hit for key and reports whether it is within the limit.
// Rejected hits are not counted.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.windows[key]
	if !ok || now.Sub(c.start) >= l.window {
		c = &counter{start: now}
		s.windows[key] = c
	}

	if c.hits >= l.limit {
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: c.start.Add(l.window).Sub(now),
		}
	}

	c.hits++
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - c.hits,
	}
}

// Reset forgets key's current window.
func (l *Limiter) Reset(key string) {
	s := l.shardFor(key)
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
}

// Sweep drops expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for key, c := range s.windows {
			if now.Sub(c.start) >= l.window {
				delete(s.windows, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (l *Limiter) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
