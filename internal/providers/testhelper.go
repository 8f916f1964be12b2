package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenAIAPIKey:     os.Getenv(OpenAIEnvKey),
		OpenRouterAPIKey: os.Getenv(OpenRouterEnvKey),
		AnthropicAPIKey:  os.Getenv(AnthropicEnvKey),
	}
}

// HasOpenAI returns true if an OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasOpenRouter returns true if an OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasAnthropic returns true if an Anthropic API key is configured.
func (c TestConfig) HasAnthropic() bool {
	return c.AnthropicAPIKey != ""
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		Providers: make(map[string]ProviderConfig),
	}

	if c.HasOpenAI() {
		cfg.Providers[TypeOpenAI] = ProviderConfig{
			Type:      TypeOpenAI,
			Model:     "gpt-4o-mini",
			APIKey:    c.OpenAIAPIKey,
			RateLimit: 60,
		}
	}
	if c.HasOpenRouter() {
		cfg.Providers[TypeOpenRouter] = ProviderConfig{
			Type:      TypeOpenRouter,
			Model:     "openai/gpt-4o-mini",
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 60,
		}
	}
	if c.HasAnthropic() {
		cfg.Providers[TypeAnthropic] = ProviderConfig{
			Type:      TypeAnthropic,
			Model:     "claude-3-5-haiku-latest",
			APIKey:    c.AnthropicAPIKey,
			RateLimit: 50,
		}
	}

	return cfg
}
