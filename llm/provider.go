// Package llm provides the text-generation oracle consulted by the agent and
// the provider implementations behind it.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Message represents an LLM message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatRequest represents a chat request to the LLM.
type ChatRequest struct {
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse represents a chat response from the LLM.
type ChatResponse struct {
	Content      string `json:"content"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Provider is the interface for LLM providers.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// DefaultMaxTokens bounds replies when the config leaves max_tokens unset.
// Replies are a single protocol line, so this is generous.
const DefaultMaxTokens = 1024

// ProviderConfig is the [oracle] provider selection as written in config.
type ProviderConfig struct {
	Provider    string   `json:"provider" toml:"provider"` // google, anthropic, openai, or an OpenAI-compatible service
	Model       string   `json:"model" toml:"model"`
	APIKey      string   `json:"api_key" toml:"api_key"`
	MaxTokens   int      `json:"max_tokens" toml:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty" toml:"temperature"`
	BaseURL     string   `json:"base_url" toml:"base_url"` // Custom API endpoint for OpenAI-compatible servers
}

// Validate validates the configuration.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.APIKey == "" && !isLocalProvider(c.Provider) {
		return fmt.Errorf("api key is required")
	}
	return c.settings().validate(c.Provider)
}

// ApplyDefaults applies default values.
func (c *ProviderConfig) ApplyDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Provider == "" && c.Model != "" {
		c.Provider = InferProviderFromModel(c.Model)
	}
}

func (c *ProviderConfig) settings() Settings {
	return Settings{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

// Settings are the generation knobs shared by every provider.
type Settings struct {
	Model     string
	MaxTokens int
	// Temperature is left to the service default when nil.
	Temperature *float64
}

func (s Settings) validate(provider string) error {
	if s.Model == "" {
		return fmt.Errorf("model is required for %s", provider)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive for %s", provider)
	}
	if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 2) {
		return fmt.Errorf("temperature %.2f out of range [0, 2] for %s", *s.Temperature, provider)
	}
	return nil
}

// maxTokens lets a request lower the configured reply bound.
func (s Settings) maxTokens(req ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return s.MaxTokens
}

// splitSystem separates the system instruction from the conversation turns.
// Later system messages replace earlier ones.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}

// --- Mock Provider for Testing ---

// MockProvider is a scripted provider for tests. Each Chat call returns the
// next scripted response; the last one repeats once the script runs out.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	delay     time.Duration
	requests  []ChatRequest

	// ChatFunc can be overridden for custom behavior
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates a mock that replies with the given texts in order.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// SetResponses replaces the script.
func (p *MockProvider) SetResponses(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
}

// SetError makes every call fail with err.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetDelay makes every call block for d, ignoring cancellation, the way a
// stuck SDK call would.
func (p *MockProvider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// CallCount returns the number of Chat calls made.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Prompts returns the user content of every request, in order.
func (p *MockProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.requests))
	for _, req := range p.requests {
		for _, m := range req.Messages {
			if m.Role == "user" {
				out = append(out, m.Content)
			}
		}
	}
	return out
}

// Chat implements the Provider interface.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	n := len(p.requests)
	p.requests = append(p.requests, req)
	delay, err, fn := p.delay, p.err, p.ChatFunc
	var content string
	if len(p.responses) > 0 {
		if n < len(p.responses) {
			content = p.responses[n]
		} else {
			content = p.responses[len(p.responses)-1]
		}
	}
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &ChatResponse{
		Content:    content,
		StopReason: "end_turn",
		Model:      "mock",
	}, nil
}
