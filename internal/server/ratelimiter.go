package server

import (
	"sync"
	"time"
)

// rateState tracks the sliding window of request times for one client.
type rateState struct {
	requests []int64
}

// RateLimiter implements per-IP rate limiting with a one-minute sliding
// window.
type RateLimiter struct {
	limits            map[string]*rateState
	maxRequestsPerMin int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	mu                sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limits:            make(map[string]*rateState),
		maxRequestsPerMin: maxRequestsPerMinute,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}
	go rl.runCleanup()
	return rl
}

// Allow reports whether a request from the given IP is within the limit and
// records it if so.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	state, exists := rl.limits[ip]
	if !exists {
		state = &rateState{}
		rl.limits[ip] = state
	}

	state.requests = pruneOld(state.requests, now)
	if len(state.requests) >= rl.maxRequestsPerMin {
		return false
	}
	state.requests = append(state.requests, now)
	return true
}

// RetryAfter returns the number of seconds until the oldest request in the
// window expires.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.limits[ip]
	if !exists || len(state.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	retryAfterMs := 60000 - (now - state.requests[0])
	if retryAfterMs < 0 {
		return 0
	}
	return int((retryAfterMs + 999) / 1000)
}

func pruneOld(requests []int64, now int64) []int64 {
	valid := requests[:0]
	for _, ts := range requests {
		if now-ts < 60000 {
			valid = append(valid, ts)
		}
	}
	return valid
}

func (rl *RateLimiter) runCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()
	for ip, state := range rl.limits {
		state.requests = pruneOld(state.requests, now)
		if len(state.requests) == 0 {
			delete(rl.limits, ip)
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}
