package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vinayprograms/slideagent/errors"
)

const (
	defaultWebhookAttempts = 3
	defaultWebhookBackoff  = 2 * time.Second
)

// WebhookConfig configures a webhook channel.
type WebhookConfig struct {
	URL     string
	Secret  string // signs the body when set
	Headers map[string]string
	Timeout time.Duration

	Attempts int
	Backoff  time.Duration // multiplied by the attempt number; negative disables
}

// Webhook posts events as JSON.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook creates a webhook channel.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "webhook url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultWebhookAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	} else if cfg.Backoff == 0 {
		cfg.Backoff = defaultWebhookBackoff
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Send implements Sender.
func (w *Webhook) Send(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < w.cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "webhook canceled")
			case <-time.After(time.Duration(attempt) * w.cfg.Backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "slideagent-webhook/1.0")
		req.Header.Set("X-Slideagent-Event", string(e.Type))
		if w.cfg.Secret != "" {
			req.Header.Set("X-Slideagent-Signature", Sign(w.cfg.Secret, body))
		}
		for k, v := range w.cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, w.cfg.URL)
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", w.cfg.Attempts, lastErr)
}
