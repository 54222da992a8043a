// Package config loads the slideagent TOML configuration.
//
// Every section is optional. Default returns a runnable configuration (Gemini
// oracle, stdio math server, six-step automation, log notifications), Load
// overlays a file on top of it, and Validate checks the result.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/slideagent/automation"
	"github.com/vinayprograms/slideagent/llm"
)

// Duration is a time.Duration written as a string ("10s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the whole file.
type Config struct {
	Oracle     OracleConfig     `toml:"oracle"`
	Loop       LoopConfig       `toml:"loop"`
	Tools      ToolsConfig      `toml:"tools"`
	Automation AutomationConfig `toml:"automation"`
	Notify     NotifyConfig     `toml:"notify"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Log        LogConfig        `toml:"log"`
}

// OracleConfig selects the text-generation provider.
type OracleConfig struct {
	llm.ProviderConfig
	Timeout Duration `toml:"timeout"`
	// RequestsPerMinute caps generation calls; 0 leaves them unpaced.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// LoopConfig bounds the decision loop.
type LoopConfig struct {
	MaxIterations  int    `toml:"max_iterations"`
	FeedBackErrors bool   `toml:"feed_back_errors"`
	Task           string `toml:"task"`
}

// Tool sources.
const (
	ToolsMCP     = "mcp"
	ToolsBuiltin = "builtin"
)

// ToolsConfig selects where tools come from.
type ToolsConfig struct {
	Source  string            `toml:"source"` // mcp or builtin
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	Timeout Duration          `toml:"timeout"` // 0 leaves calls unbounded
}

// AutomationConfig tunes the slide automation.
type AutomationConfig struct {
	Enabled       bool     `toml:"enabled"`
	DryRun        bool     `toml:"dry_run"`
	Candidates    []string `toml:"candidates"`
	WindowTitle   string   `toml:"window_title"`
	StartDelay    Duration `toml:"start_delay"`
	WindowTimeout Duration `toml:"window_timeout"`
	ActionTimeout Duration `toml:"action_timeout"`
	SettleDelay   Duration `toml:"settle_delay"`
}

// Notification channels.
const (
	ChannelLog     = "log"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// NotifyConfig selects report channels. Mail secrets come from credentials.
type NotifyConfig struct {
	Channels      []string `toml:"channels"`
	LogLines      int      `toml:"log_lines"` // log tail attached to reports
	WebhookURL    string   `toml:"webhook_url"`
	WebhookSecret string   `toml:"webhook_secret"`
}

// TelemetryConfig configures the run journal and tracing.
type TelemetryConfig struct {
	Journal         string `toml:"journal"` // noop, file, http
	JournalEndpoint string `toml:"journal_endpoint"`

	OTLPEndpoint string `toml:"otlp_endpoint"` // empty disables tracing
	OTLPProtocol string `toml:"otlp_protocol"` // grpc or http
	Insecure     bool   `toml:"insecure"`
	Debug        bool   `toml:"debug"` // record prompts on spans and in the journal
	// SampleRatio is the fraction of runs traced; 0 traces all.
	SampleRatio float64 `toml:"sample_ratio"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Oracle: OracleConfig{
			ProviderConfig: llm.ProviderConfig{
				Provider: "google",
				Model:    "gemini-2.0-flash",
			},
		},
		Tools: ToolsConfig{
			Source:  ToolsMCP,
			Command: "mathserver",
		},
		Automation: AutomationConfig{Enabled: true},
		Notify:     NotifyConfig{Channels: []string{ChannelLog}},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content))
}

// Parse decodes TOML content over the defaults.
func Parse(content string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(content, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.Oracle.ApplyDefaults()
	if c.Oracle.Timeout.Duration == 0 {
		c.Oracle.Timeout.Duration = llm.DefaultOracleTimeout
	}
	if c.Loop.MaxIterations == 0 {
		c.Loop.MaxIterations = 10
	}
	if c.Tools.Source == "" {
		c.Tools.Source = ToolsMCP
	}

	ac := c.Automation.Sequencer()
	c.Automation.Candidates = ac.Candidates
	c.Automation.WindowTitle = ac.WindowTitle
	c.Automation.StartDelay.Duration = ac.StartDelay
	c.Automation.WindowTimeout.Duration = ac.WindowTimeout
	c.Automation.ActionTimeout.Duration = ac.ActionTimeout
	c.Automation.SettleDelay.Duration = ac.SettleDelay

	if c.Notify.LogLines == 0 {
		c.Notify.LogLines = 200
	}
	if c.Telemetry.Journal == "" {
		c.Telemetry.Journal = "noop"
	}
	if c.Telemetry.OTLPProtocol == "" {
		c.Telemetry.OTLPProtocol = "grpc"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports the first configuration error. API keys are not checked
// here since they usually come from credentials.
func (c *Config) Validate() error {
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if c.Oracle.Provider == "" {
		return fmt.Errorf("oracle.provider is required (cannot infer from model %q)", c.Oracle.Model)
	}
	if c.Oracle.Timeout.Duration < 0 {
		return fmt.Errorf("oracle.timeout must not be negative")
	}
	if c.Oracle.RequestsPerMinute < 0 {
		return fmt.Errorf("oracle.requests_per_minute must not be negative")
	}
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop.max_iterations must be at least 1")
	}

	switch c.Tools.Source {
	case ToolsBuiltin:
	case ToolsMCP:
		if c.Tools.Command == "" {
			return fmt.Errorf("tools.command is required for the mcp source")
		}
	default:
		return fmt.Errorf("tools.source must be %q or %q, got %q", ToolsMCP, ToolsBuiltin, c.Tools.Source)
	}
	if c.Tools.Timeout.Duration < 0 {
		return fmt.Errorf("tools.timeout must not be negative")
	}

	for _, ch := range c.Notify.Channels {
		switch ch {
		case ChannelLog, ChannelEmail:
		case ChannelWebhook:
			if c.Notify.WebhookURL == "" {
				return fmt.Errorf("notify.webhook_url is required for the webhook channel")
			}
		default:
			return fmt.Errorf("unknown notify channel %q", ch)
		}
	}

	switch c.Telemetry.Journal {
	case "noop":
	case "file", "http":
		if c.Telemetry.JournalEndpoint == "" {
			return fmt.Errorf("telemetry.journal_endpoint is required for the %s journal", c.Telemetry.Journal)
		}
	default:
		return fmt.Errorf("unknown telemetry.journal %q", c.Telemetry.Journal)
	}
	switch c.Telemetry.OTLPProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("telemetry.otlp_protocol must be grpc or http, got %q", c.Telemetry.OTLPProtocol)
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %g", r)
	}
	return nil
}

// Sequencer converts the section to the automation package's config.
func (a AutomationConfig) Sequencer() automation.Config {
	cfg := automation.Config{
		Candidates:    a.Candidates,
		WindowTitle:   a.WindowTitle,
		StartDelay:    a.StartDelay.Duration,
		WindowTimeout: a.WindowTimeout.Duration,
		ActionTimeout: a.ActionTimeout.Duration,
		SettleDelay:   a.SettleDelay.Duration,
	}
	cfg.ApplyDefaults()
	return cfg
}

// HasChannel reports whether a notify channel is enabled.
func (n NotifyConfig) HasChannel(name string) bool {
	for _, ch := range n.Channels {
		if ch == name {
			return true
		}
	}
	return false
}
