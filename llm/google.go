package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleProvider generates with Gemini models.
//
// A GenerativeModel carries the system instruction as mutable state, so one
// is built per request and concurrent runs never see each other's prompt.
type GoogleProvider struct {
	client   *genai.Client
	settings Settings
}

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	APIKey string
	Settings
}

// NewGoogleProvider creates a Gemini provider.
func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for google")
	}
	if err := cfg.Settings.validate("google"); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GoogleProvider{client: client, settings: cfg.Settings}, nil
}

// Close closes the underlying client.
func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func (p *GoogleProvider) model(system string, req ChatRequest) *genai.GenerativeModel {
	m := p.client.GenerativeModel(p.settings.Model)
	m.SetMaxOutputTokens(int32(p.settings.maxTokens(req)))
	if t := p.settings.Temperature; t != nil {
		m.SetTemperature(float32(*t))
	}
	if system != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	return m
}

// Chat implements Provider. Gemini takes one content per call here, so all
// user turns are sent as parts of a single prompt.
func (p *GoogleProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	system, turns := splitSystem(req.Messages)
	var parts []genai.Part
	for _, m := range turns {
		if m.Role == "user" {
			parts = append(parts, genai.Text(m.Content))
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("google request has no user content")
	}

	resp, err := p.model(system, req).GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, fmt.Errorf("google blocked the request: %w", err)
		}
		return nil, fmt.Errorf("google request failed: %w", err)
	}

	out := &ChatResponse{Model: p.settings.Model}
	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		if c.FinishReason != genai.FinishReasonUnspecified {
			out.StopReason = c.FinishReason.String()
		}
		out.Content = candidateText(c)
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
