package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vinayprograms/slideagent/ratelimit"
)

func TestWithRateLimit_NilLimiter(t *testing.T) {
	mock := NewMockProvider("FINAL_ANSWER: [1]")
	if got := WithRateLimit(mock, nil); got != Provider(mock) {
		t.Error("nil limiter should return the provider unchanged")
	}
}

func TestRateLimitedProvider_TakesTokens(t *testing.T) {
	limiter, err := ratelimit.New(2, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	mock := NewMockProvider("FINAL_ANSWER: [1]")
	p := WithRateLimit(mock, limiter)

	for i := 0; i < 2; i++ {
		if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := p.Chat(ctx, ChatRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("third call should wait for a token, got %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("provider saw %d calls, want 2", mock.CallCount())
	}
}

func TestRateLimitedProvider_ReducesOnQuotaError(t *testing.T) {
	limiter, _ := ratelimit.New(8, time.Minute)
	mock := NewMockProvider()
	mock.SetError(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"))
	p := WithRateLimit(mock, limiter)

	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected provider error")
	}
	if got := limiter.Capacity().Total; got != 6 {
		t.Errorf("capacity = %d, want 6 after a quota error", got)
	}

	mock.SetError(errors.New("connection refused"))
	p.Chat(context.Background(), ChatRequest{})
	if got := limiter.Capacity().Total; got != 6 {
		t.Errorf("non-quota error changed capacity to %d", got)
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("status 429 Too Many Requests"), true},
		{errors.New("rate_limit_error: slow down"), true},
		{errors.New("You exceeded your current quota"), true},
		{errors.New("invalid api key"), false},
	}
	for _, tt := range tests {
		if got := IsQuotaError(tt.err); got != tt.want {
			t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
