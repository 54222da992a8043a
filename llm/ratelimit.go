package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/slideagent/ratelimit"
)

// RateLimitedProvider paces requests through a token bucket. When the
// provider answers with a quota error the bucket shrinks so later rounds
// back off.
type RateLimitedProvider struct {
	provider Provider
	limiter  *ratelimit.Limiter
}

// WithRateLimit wraps p so every Chat first takes a token from limiter.
// A nil limiter returns p unchanged.
func WithRateLimit(p Provider, limiter *ratelimit.Limiter) Provider {
	if limiter == nil {
		return p
	}
	return &RateLimitedProvider{provider: p, limiter: limiter}
}

// Chat implements Provider.
func (rp *RateLimitedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := rp.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	resp, err := rp.provider.Chat(ctx, req)
	if err != nil && IsQuotaError(err) {
		rp.limiter.Reduce()
	}
	return resp, err
}

// IsQuotaError reports whether err looks like a provider quota rejection.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit", "resource_exhausted", "quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
