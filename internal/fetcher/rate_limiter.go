package fetcher

import (
	"context"
	"sync"
	"time"
)

// RateLimiter caps requests per host: at most maxConcurrent callers inside
// Wait at once and at most rpm requests per rolling minute window.
type RateLimiter struct {
	maxConcurrent int
	rpm           int
	hosts         map[string]*hostLimiter
	mu            sync.Mutex
}

type hostLimiter struct {
	sem         chan struct{}
	windowStart time.Time
	requests    int
	mu          sync.Mutex
}

func NewRateLimiter(maxConcurrent, rpm int) *RateLimiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &RateLimiter{
		maxConcurrent: maxConcurrent,
		rpm:           rpm,
		hosts:         make(map[string]*hostLimiter),
	}
}

func (rl *RateLimiter) limiterFor(host string) *hostLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.hosts[host]
	if !ok {
		limiter = &hostLimiter{sem: make(chan struct{}, rl.maxConcurrent)}
		rl.hosts[host] = limiter
	}
	return limiter
}

// Wait blocks until a request to host may start. rpm <= 0 disables the
// per-minute cap.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	limiter := rl.limiterFor(host)

	select {
	case limiter.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-limiter.sem }()

	if rl.rpm <= 0 {
		return nil
	}

	for {
		limiter.mu.Lock()
		now := time.Now()
		if now.Sub(limiter.windowStart) >= time.Minute {
			limiter.windowStart = now
			limiter.requests = 0
		}
		if limiter.requests < rl.rpm {
			limiter.requests++
			limiter.mu.Unlock()
			return nil
		}
		waitTime := time.Minute - now.Sub(limiter.windowStart)
		limiter.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
