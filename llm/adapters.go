package llm

import (
	"fmt"
	"strings"
)

// compatService is an OpenAI-compatible endpoint reachable by provider name.
type compatService struct {
	baseURL string // empty: base_url must come from config
	keyless bool
}

var compatServices = map[string]compatService{
	"groq":          {baseURL: GroqBaseURL},
	"mistral":       {baseURL: MistralBaseURL},
	"xai":           {baseURL: XAIBaseURL},
	"openrouter":    {baseURL: OpenRouterBaseURL},
	"ollama":        {baseURL: OllamaLocalURL, keyless: true},
	"ollama-local":  {baseURL: OllamaLocalURL, keyless: true},
	"lmstudio":      {baseURL: LMStudioLocalURL, keyless: true},
	"openai-compat": {keyless: true},
	"litellm":       {keyless: true},
}

// NewProvider builds the provider named by cfg. An empty Provider is
// inferred from the model name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	cfg.ApplyDefaults()
	if cfg.Provider == "" {
		return nil, fmt.Errorf("cannot determine provider for model %q; set provider explicitly", cfg.Model)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings := cfg.settings()

	switch cfg.Provider {
	case "google":
		return NewGoogleProvider(GoogleConfig{APIKey: cfg.APIKey, Settings: settings})
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Settings: settings})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Settings: settings})
	}

	svc, ok := compatServices[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = svc.baseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base_url is required for provider %s", cfg.Provider)
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		ProviderName: cfg.Provider,
		Settings:     settings,
	})
}

// isLocalProvider reports providers that run without an API key.
func isLocalProvider(provider string) bool {
	return compatServices[provider].keyless
}

// modelPrefixes maps model name prefixes to providers, checked in order.
var modelPrefixes = []struct {
	prefix   string
	provider string
}{
	{"gemini", "google"},
	{"gemma", "google"},
	{"claude", "anthropic"},
	{"gpt-", "openai"},
	{"o1", "openai"},
	{"o3", "openai"},
	{"chatgpt", "openai"},
	{"mistral", "mistral"},
	{"mixtral", "mistral"},
	{"codestral", "mistral"},
	{"grok", "xai"},
}

// InferProviderFromModel returns the provider for a model name, or "" when
// the name matches no known family.
func InferProviderFromModel(model string) string {
	model = strings.ToLower(model)
	for _, m := range modelPrefixes {
		if strings.HasPrefix(model, m.prefix) {
			return m.provider
		}
	}
	return ""
}
