package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"

	// ProviderAuto picks the first vendor whose standard API key variable
	// is set. See DiscoverConfig.
	ProviderAuto = "auto"
)

// Config selects and configures the provider used for pre-grading.
type Config struct {
	// Provider is one of the Provider* constants. Empty or "none" disables
	// LLM grading entirely.
	Provider string

	Anthropic ProviderConfig
	OpenAI    ProviderConfig
	Gemini    ProviderConfig
	Retry     RetryConfig

	// Timeout bounds one grading call including retries.
	Timeout time.Duration
}

// ProviderConfig is the per-provider credential and model.
type ProviderConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint (OpenAI-compatible gateways).
	BaseURL string
}

// RetryConfig configures exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a disabled Config with model and retry defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderNone,
		Anthropic: ProviderConfig{Model: "claude-haiku"},
		OpenAI:    ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:    ProviderConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv overlays TIERWISE_* environment variables on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if os.Getenv("TIERWISE_LLM_PROVIDER") == ProviderAuto {
		if found, ok := DiscoverConfig(); ok {
			cfg = found
		}
	} else {
		setFromEnv(&cfg.Provider, "TIERWISE_LLM_PROVIDER")
	}

	for name, pc := range map[string]*ProviderConfig{
		"ANTHROPIC": &cfg.Anthropic,
		"OPENAI":    &cfg.OpenAI,
		"GEMINI":    &cfg.Gemini,
	} {
		setFromEnv(&pc.APIKey, "TIERWISE_"+name+"_API_KEY")
		setFromEnv(&pc.Model, "TIERWISE_"+name+"_MODEL")
		setFromEnv(&pc.BaseURL, "TIERWISE_"+name+"_BASE_URL")
	}

	if v := os.Getenv("TIERWISE_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig probes the vendors' standard API key variables
// (Gemini, then OpenAI, then Anthropic) and enables the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	probes := []struct {
		env      string
		provider string
		dst      *ProviderConfig
	}{
		{"GEMINI_API_KEY", ProviderGemini, &cfg.Gemini},
		{"OPENAI_API_KEY", ProviderOpenAI, &cfg.OpenAI},
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &cfg.Anthropic},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			cfg.Provider = p.provider
			p.dst.APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks the selected provider has an API key.
func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderNone, ProviderMock:
		return nil
	case ProviderAnthropic:
		return requireKey(c.Anthropic, "ANTHROPIC")
	case ProviderOpenAI:
		return requireKey(c.OpenAI, "OPENAI")
	case ProviderGemini:
		return requireKey(c.Gemini, "GEMINI")
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
}

func requireKey(pc ProviderConfig, name string) error {
	if pc.APIKey == "" {
		return fmt.Errorf("TIERWISE_%s_API_KEY is required for the %s provider", name, strings.ToLower(name))
	}
	return nil
}
