// Tracing wrapper for LLM providers.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/slideagent/telemetry"
)

type iterationKey struct{}

// WithIteration tags ctx with the loop iteration a generation belongs to so
// the oracle span can carry it.
func WithIteration(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, iterationKey{}, n)
}

// IterationFrom returns the iteration set by WithIteration, or 0.
func IterationFrom(ctx context.Context) int {
	n, _ := ctx.Value(iterationKey{}).(int)
	return n
}

// TracingProvider wraps a Provider with OpenTelemetry tracing.
type TracingProvider struct {
	provider     Provider
	providerName string
}

// WithTracing wraps a provider with tracing instrumentation.
func WithTracing(p Provider, providerName string) Provider {
	return &TracingProvider{
		provider:     p,
		providerName: providerName,
	}
}

// Chat implements Provider with tracing.
func (tp *TracingProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	tracer := telemetry.GetTracer()
	iteration := IterationFrom(ctx)

	ctx, span := tracer.StartOracleSpan(ctx, iteration)

	resp, err := tp.provider.Chat(ctx, req)

	opts := telemetry.OracleSpanOptions{
		Iteration: iteration,
		Provider:  tp.providerName,
	}
	if resp != nil {
		opts.Model = resp.Model
		opts.TokensIn = resp.InputTokens
		opts.TokensOut = resp.OutputTokens
		opts.Response = resp.Content
	}

	// Prompt is only recorded in debug mode
	if tracer.Debug() {
		var parts []string
		for _, msg := range req.Messages {
			parts = append(parts, fmt.Sprintf("[%s] %s", msg.Role, msg.Content))
		}
		opts.Prompt = strings.Join(parts, "\n")
	}

	tracer.EndOracleSpan(span, opts, err)

	return resp, err
}
