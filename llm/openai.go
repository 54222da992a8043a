package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Base URLs of OpenAI-compatible services.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	MistralBaseURL    = "https://api.mistral.ai/v1"
	XAIBaseURL        = "https://api.x.ai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OllamaLocalURL    = "http://localhost:11434/v1"
	LMStudioLocalURL  = "http://localhost:1234/v1"
)

// OpenAIProvider generates through the Chat Completions API. With a BaseURL
// it serves any OpenAI-compatible service.
type OpenAIProvider struct {
	client   openai.Client
	settings Settings
	name     string
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional custom endpoint
	ProviderName string // For error messages; defaults to "openai"
	Settings
}

// NewOpenAIProvider creates an OpenAI or compatible provider. SDK retries are
// off so a failed generation surfaces at once.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	name := cfg.ProviderName
	if name == "" {
		name = "openai"
	}
	if cfg.APIKey == "" && !isLocalProvider(name) {
		return nil, fmt.Errorf("api_key is required for %s", name)
	}
	if err := cfg.Settings.validate(name); err != nil {
		return nil, err
	}

	// Local servers ignore the key but the SDK insists on one.
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:   openai.NewClient(opts...),
		settings: cfg.Settings,
		name:     name,
	}, nil
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(p.settings.Model),
		Messages:  openaiMessages(req.Messages),
		MaxTokens: openai.Int(int64(p.settings.maxTokens(req))),
	}
	if t := p.settings.Temperature; t != nil {
		params.Temperature = openai.Float(*t)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}

	out := &ChatResponse{
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.StopReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

func openaiMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
