package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to Next. A wait that cannot finish before the
// context deadline fails immediately.
type RateLimited struct {
	Next    Completer
	limiter *rate.Limiter
}

func NewRateLimited(next Completer, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimited{Next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("completion throttled: %w", err)
	}
	return r.Next.Complete(ctx, prompt)
}
