package shopify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter paces Admin API calls per shop so one busy shop can't exhaust
// the app's call budget
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   zerolog.Logger
}

// NewRateLimiter creates a limiter matching the Admin API leaky bucket
// (2 requests/second, bucket of 40)
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithLimits(2, 40, logger)
}

// NewRateLimiterWithLimits creates a limiter with explicit limits
func NewRateLimiterWithLimits(requestsPerSecond float64, burst int, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(shop string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[shop]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[shop] = limiter
	}
	return limiter
}

// Wait blocks until the shop may make another call or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, shop string) error {
	limiter := rl.getLimiter(shop)
	if limiter.Allow() {
		return nil
	}
	rl.logger.Debug().Str("shop", shop).Msg("Admin API call delayed by rate limiter")
	return limiter.Wait(ctx)
}

// Forget drops the limiter for a shop, e.g. after uninstall
func (rl *RateLimiter) Forget(shop string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, shop)
}
