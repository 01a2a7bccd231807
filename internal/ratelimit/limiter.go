package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/config"
	"github.com/CodeMonkeyCybersecurity/verdict/internal/core"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

// Limiter paces replay traffic so repeated attempts against one target don't
// trip its own rate limiting, which would skew reproduction results.
type Limiter struct {
	limiter      *rate.Limiter
	requestDelay time.Duration
	nextSlot     map[string]time.Time
	mu           sync.Mutex
}

// Config contains rate limiting configuration
type Config struct {
	// RequestsPerSecond limits the number of requests per second
	RequestsPerSecond float64

	// BurstSize allows brief bursts above the rate limit
	BurstSize int

	// MinDelay is the minimum delay between requests to the same host
	MinDelay time.Duration
}

// FromConfig converts the rate_limit config section
func FromConfig(cfg config.RateLimitConfig) Config {
	return Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		BurstSize:         cfg.BurstSize,
		MinDelay:          cfg.MinDelay,
	}
}

func NewLimiter(config Config) *Limiter {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	return &Limiter{
		limiter:      rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
		requestDelay: config.MinDelay,
		nextSlot:     make(map[string]time.Time),
	}
}

// WaitForHost blocks until both the global rate and the per-host minimum
// delay allow a request to host. Concurrent callers for the same host are
// handed consecutive slots instead of all waking at once.
func (l *Limiter) WaitForHost(ctx context.Context, host string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	now := time.Now()
	slot := now
	if next, exists := l.nextSlot[host]; exists && next.After(now) {
		slot = next
	}
	l.nextSlot[host] = slot.Add(l.requestDelay)
	l.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor applies a Limiter in front of another RequestExecutor
type Executor struct {
	next    core.RequestExecutor
	limiter *Limiter
}

func NewExecutor(next core.RequestExecutor, limiter *Limiter) *Executor {
	return &Executor{next: next, limiter: limiter}
}

func (e *Executor) Execute(ctx context.Context, req types.HTTPRequest) (*types.HTTPResponse, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &types.TransportError{Op: req.Method, URL: req.URL, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	if err := e.limiter.WaitForHost(ctx, u.Host); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &types.TransportError{Op: req.Method, URL: req.URL, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	return e.next.Execute(ctx, req)
}
