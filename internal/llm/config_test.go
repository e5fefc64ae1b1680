package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TIERWISE_LLM_PROVIDER", "TIERWISE_LLM_TIMEOUT",
		"TIERWISE_ANTHROPIC_API_KEY", "TIERWISE_ANTHROPIC_MODEL", "TIERWISE_ANTHROPIC_BASE_URL",
		"TIERWISE_OPENAI_API_KEY", "TIERWISE_OPENAI_MODEL", "TIERWISE_OPENAI_BASE_URL",
		"TIERWISE_GEMINI_API_KEY", "TIERWISE_GEMINI_MODEL", "TIERWISE_GEMINI_BASE_URL",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfigDisabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled())
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestConfigFromEnv(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("TIERWISE_LLM_PROVIDER", "openai")
	t.Setenv("TIERWISE_OPENAI_API_KEY", "sk-test")
	t.Setenv("TIERWISE_OPENAI_BASE_URL", "https://gateway.example.com/v1")
	t.Setenv("TIERWISE_LLM_TIMEOUT", "5s")

	cfg := ConfigFromEnv()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "https://gateway.example.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderAnthropic
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIERWISE_ANTHROPIC_API_KEY")
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "watson"
	assert.Error(t, cfg.Validate())
}

func TestDiscoverConfig(t *testing.T) {
	clearLLMEnv(t)
	_, ok := DiscoverConfig()
	assert.False(t, ok)

	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	cfg, ok := DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "o-key", cfg.OpenAI.APIKey)
}

func TestConfigFromEnvAuto(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("TIERWISE_LLM_PROVIDER", "auto")

	cfg := ConfigFromEnv()
	assert.False(t, cfg.Enabled(), "no vendor key set")

	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("TIERWISE_GEMINI_MODEL", "gemini-pro")
	cfg = ConfigFromEnv()
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-pro", cfg.Gemini.Model)
	assert.NoError(t, cfg.Validate())
}

func TestNewProviderDisabled(t *testing.T) {
	_, err := NewProvider(context.Background(), DefaultConfig(), nil, nil)
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestNewProviderMock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	p, err := NewProvider(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}

func TestNewProviderWrapsWithRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	p, err := NewProvider(context.Background(), cfg, &recordingEvents{}, nil)
	require.NoError(t, err)

	retry, ok := p.(*RetryProvider)
	require.True(t, ok, "outermost provider should retry, got %T", p)
	_, ok = retry.inner.(*LoggingProvider)
	assert.True(t, ok, "retry should wrap logging, got %T", retry.inner)
}

func TestMockProviderExhausted(t *testing.T) {
	m := NewMockProvider()
	_, err := m.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavail))
	assert.Equal(t, 1, m.CallCount())
	assert.Len(t, m.Calls(), 1)
}
