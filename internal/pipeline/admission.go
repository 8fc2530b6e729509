package pipeline

import (
	"sync"
	"time"
)

// Admission caps the number of concurrently executing pipelines. Requests
// over the cap are not rejected; callers surface a queued status with an
// estimated wait instead.
type Admission struct {
	slots      chan struct{}
	avgLatency time.Duration
}

func NewAdmission(capacity int, avgLatency time.Duration) *Admission {
	return &Admission{
		slots:      make(chan struct{}, capacity),
		avgLatency: avgLatency,
	}
}

// TryAcquire claims a slot without blocking.
func (a *Admission) TryAcquire() bool {
	select {
	case a.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (a *Admission) Release() {
	select {
	case <-a.slots:
	default:
	}
}

// EstimatedWait approximates how long a queued caller should wait before
// retrying, based on how saturated the pipeline is.
func (a *Admission) EstimatedWait() time.Duration {
	inFlight := len(a.slots)
	if inFlight == 0 {
		return a.avgLatency
	}
	return time.Duration(1+inFlight/cap(a.slots)) * a.avgLatency
}

// RateLimiter enforces a fixed-window per-user upload quota. Window counters
// live in one mutex-guarded map with defined initialization at service start;
// stale windows are pruned as they are touched.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*userWindow
}

type userWindow struct {
	start time.Time
	count int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*userWindow),
	}
}

// Allow records one upload attempt for user and reports whether it is within
// quota.
func (r *RateLimiter) Allow(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[user]
	if !ok || now.Sub(w.start) >= r.window {
		r.windows[user] = &userWindow{start: now, count: 1}
		r.prune(now)
		return r.limit >= 1
	}

	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

func (r *RateLimiter) prune(now time.Time) {
	for user, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, user)
		}
	}
}
