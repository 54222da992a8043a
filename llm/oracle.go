package llm

import (
	"context"
	"time"

	"github.com/vinayprograms/slideagent/errors"
)

// DefaultOracleTimeout is the bounded wait applied to one generation.
const DefaultOracleTimeout = 10 * time.Second

// Oracle turns a prompt into reply text.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, prompt string) (string, error)

func (f OracleFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ProviderOracle sends each prompt as a single user message.
type ProviderOracle struct {
	provider  Provider
	maxTokens int
}

// NewOracle wraps a provider as an Oracle.
func NewOracle(p Provider, maxTokens int) *ProviderOracle {
	return &ProviderOracle{provider: p, maxTokens: maxTokens}
}

// Generate implements Oracle.
func (o *ProviderOracle) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.provider.Chat(ctx, ChatRequest{
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

type generation struct {
	text string
	err  error
}

// GenerateWithTimeout runs one generation in its own goroutine and waits at
// most timeout for it. On expiry the call is abandoned: it keeps running with
// the caller's context and its result is dropped. Expiry is ORACLE_TIMEOUT,
// any other failure ORACLE_FAULT. Nothing is retried.
func GenerateWithTimeout(ctx context.Context, o Oracle, prompt string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}

	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: errors.RecoverPanic(r)}
			}
		}()
		text, err := o.Generate(ctx, prompt)
		done <- generation{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case g := <-done:
		if g.err != nil {
			return "", errors.WrapWithCode(g.err, errors.ErrCodeOracleFault, "oracle generation failed")
		}
		return g.text, nil
	case <-timer.C:
		return "", errors.New(errors.ErrCodeOracleTimeout,
			"oracle generation timed out after "+timeout.String(),
			errors.WithMetadata("timeout", timeout.String()))
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "oracle generation interrupted")
	}
}
