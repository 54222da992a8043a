// Package credentials loads API keys and mail secrets from standard locations.
//
// Sources, highest priority first: credentials.toml, then the process
// environment. A .env file can seed the environment before either is read.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ErrInsecurePermissions is returned when credentials file has overly permissive permissions.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// Credentials holds the secrets loaded from credentials.toml.
type Credentials struct {
	// LLM is the generic LLM API key (used when provider-specific key not found)
	LLM *ProviderCreds

	// Email holds SMTP settings from the [email] section.
	Email *EmailCreds

	providers map[string]*ProviderCreds
}

// ProviderCreds holds credentials for a single provider
type ProviderCreds struct {
	APIKey string `toml:"api_key"`
}

// EmailCreds holds SMTP settings for run reports.
type EmailCreds struct {
	Server    string `toml:"smtp_server"`
	Port      int    `toml:"smtp_port"`
	Sender    string `toml:"sender"`
	Password  string `toml:"password"`
	Recipient string `toml:"recipient"`
}

// StandardPaths returns the standard credential file locations in order of priority
func StandardPaths() []string {
	paths := []string{"credentials.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "slideagent", "credentials.toml"),
			filepath.Join(home, ".slideagent", "credentials.toml"),
		)
	}

	return paths
}

// LoadDotenv loads KEY=VALUE pairs from the given files (".env" when none are
// named) into the environment. Existing variables win and missing files are
// skipped.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads credentials from the first available standard location
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return creds, path, nil
		}
	}
	return nil, "", nil // No credentials file found (not an error)
}

// LoadFile loads credentials from a specific file.
// Returns ErrInsecurePermissions if file is readable by group or others.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		mode := info.Mode().Perm()
		// Credentials must be 0400 (owner read-only)
		if mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	// First pass: decode into a generic map to get all sections
	var rawData map[string]interface{}
	if _, err := toml.DecodeFile(path, &rawData); err != nil {
		return nil, err
	}

	creds := &Credentials{
		providers: make(map[string]*ProviderCreds),
	}

	for key, value := range rawData {
		section, ok := value.(map[string]interface{})
		if !ok {
			continue
		}

		// Second pass for the typed [email] section
		if key == "email" {
			var typed struct {
				Email EmailCreds `toml:"email"`
			}
			if _, err := toml.DecodeFile(path, &typed); err != nil {
				return nil, err
			}
			creds.Email = &typed.Email
			continue
		}

		apiKey, _ := section["api_key"].(string)
		if apiKey == "" {
			continue
		}

		provCreds := &ProviderCreds{APIKey: apiKey}

		if key == "llm" {
			creds.LLM = provCreds
		} else {
			creds.providers[key] = provCreds
		}
	}

	return creds, nil
}

// GetAPIKey returns the API key for a provider.
// Priority: [provider] section > [llm] section > environment variable
func (c *Credentials) GetAPIKey(provider string) string {
	if c != nil {
		// Normalize provider name (lowercase, no dashes)
		normalized := strings.ToLower(strings.ReplaceAll(provider, "-", ""))

		if creds, ok := c.providers[provider]; ok && creds.APIKey != "" {
			return creds.APIKey
		}
		if creds, ok := c.providers[normalized]; ok && creds.APIKey != "" {
			return creds.APIKey
		}

		if c.LLM != nil && c.LLM.APIKey != "" {
			return c.LLM.APIKey
		}
	}

	for _, name := range envVarsForProvider(provider) {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// GetEmail returns SMTP settings. Fields missing from the [email] section are
// filled from SENDER_EMAIL, SENDER_PASSWORD, RECIPIENT_EMAIL, SMTP_SERVER and
// SMTP_PORT.
func (c *Credentials) GetEmail() EmailCreds {
	var e EmailCreds
	if c != nil && c.Email != nil {
		e = *c.Email
	}
	if e.Sender == "" {
		e.Sender = os.Getenv("SENDER_EMAIL")
	}
	if e.Password == "" {
		e.Password = os.Getenv("SENDER_PASSWORD")
	}
	if e.Recipient == "" {
		e.Recipient = os.Getenv("RECIPIENT_EMAIL")
	}
	if e.Server == "" {
		e.Server = os.Getenv("SMTP_SERVER")
	}
	if e.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
			e.Port = p
		}
	}
	return e
}

// envVarsForProvider returns the environment variables checked for a
// provider, in order.
func envVarsForProvider(provider string) []string {
	switch provider {
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY"}
	case "openai", "openai-compat":
		return []string{"OPENAI_API_KEY"}
	case "google", "gemini":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "mistral":
		return []string{"MISTRAL_API_KEY"}
	case "groq":
		return []string{"GROQ_API_KEY"}
	default:
		// Generic: PROVIDER_API_KEY
		return []string{strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"}
	}
}
