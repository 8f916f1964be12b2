package config

import (
	"fmt"
	"time"

	"github.com/jackzampolin/pagemark/internal/pipeline"
	"github.com/jackzampolin/pagemark/internal/providers"
)

// Config holds pagemark configuration.
// Stored at: ~/.pagemark/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
}

// ProviderCfg configures a completion provider.
type ProviderCfg struct {
	Type           string         `mapstructure:"type" yaml:"type"`                                 // "openai", "openrouter", "anthropic", "deepinfra"
	Model          string         `mapstructure:"model" yaml:"model"`                               // Model name
	APIKey         string         `mapstructure:"api_key" yaml:"api_key"`                           // API key (supports ${ENV_VAR} syntax)
	BaseURL        string         `mapstructure:"base_url" yaml:"base_url,omitempty"`               // Endpoint override
	RateLimit      int            `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`           // Requests per minute
	TimeoutSeconds int            `mapstructure:"timeout_seconds" yaml:"timeout_seconds,omitempty"` // HTTP timeout
	MaxRetries     int            `mapstructure:"max_retries" yaml:"max_retries,omitempty"`
	Vision         *bool          `mapstructure:"vision" yaml:"vision,omitempty"`   // Overrides the model capability table
	Options        map[string]any `mapstructure:"options" yaml:"options,omitempty"` // Extra request parameters
}

// DefaultsCfg holds conversion defaults.
type DefaultsCfg struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	MaintainFormat bool   `mapstructure:"maintain_format" yaml:"maintain_format"`
	Concurrency    int    `mapstructure:"concurrency" yaml:"concurrency"`
	BoundingBoxes  bool   `mapstructure:"bounding_boxes" yaml:"bounding_boxes"`
	SystemPrompt   string `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`
	TempDir        string `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
	Cleanup        bool   `mapstructure:"cleanup" yaml:"cleanup"`
	FailurePolicy  string `mapstructure:"failure_policy" yaml:"failure_policy"`
	DPI            int    `mapstructure:"dpi" yaml:"dpi"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"openai": {
				Type:   providers.TypeOpenAI,
				Model:  "gpt-4o-mini",
				APIKey: "${OPENAI_API_KEY}",
			},
			"openrouter": {
				Type:      providers.TypeOpenRouter,
				Model:     "google/gemini-2.5-flash",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 120,
			},
			"anthropic": {
				Type:   providers.TypeAnthropic,
				Model:  "claude-sonnet-4-5",
				APIKey: "${ANTHROPIC_API_KEY}",
			},
		},
		Defaults: DefaultsCfg{
			Provider:      "openai",
			Concurrency:   pipeline.DefaultConcurrency,
			OutputDir:     ".",
			Cleanup:       true,
			FailurePolicy: pipeline.FailurePolicyContinue.String(),
			DPI:           300,
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// Provider returns the named provider, or the default provider when name is empty.
func (c *Config) Provider(name string) (string, ProviderCfg, error) {
	if name == "" {
		name = c.Defaults.Provider
	}
	cfg, ok := c.Providers[name]
	if !ok {
		return name, ProviderCfg{}, fmt.Errorf("%w: %q is not configured", providers.ErrUnknownProvider, name)
	}
	return name, cfg, nil
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	for name, p := range c.Providers {
		if _, ok := providers.EnvKeys[p.Type]; !ok {
			return fmt.Errorf("provider %q: unknown type %q", name, p.Type)
		}
		if p.RateLimit < 0 || p.TimeoutSeconds < 0 || p.MaxRetries < 0 {
			return fmt.Errorf("provider %q: rate_limit, timeout_seconds and max_retries must not be negative", name)
		}
	}
	if c.Defaults.Concurrency < 0 {
		return fmt.Errorf("defaults.concurrency must not be negative")
	}
	if _, err := pipeline.ParseFailurePolicy(c.Defaults.FailurePolicy); err != nil {
		return fmt.Errorf("defaults.failure_policy: %w", err)
	}
	return nil
}

// ToProviderConfig resolves ${ENV_VAR} references and converts to the
// form the providers package builds transports from.
func (p ProviderCfg) ToProviderConfig() providers.ProviderConfig {
	return providers.ProviderConfig{
		Type:       p.Type,
		Model:      p.Model,
		APIKey:     ResolveEnvVars(p.APIKey),
		BaseURL:    p.BaseURL,
		RateLimit:  p.RateLimit,
		Timeout:    time.Duration(p.TimeoutSeconds) * time.Second,
		MaxRetries: p.MaxRetries,
	}
}

// RequiredEnv lists the environment variables this provider needs. These
// are the ${VAR} references in api_key, or the provider type's standard
// variable when no key is configured. A literal key needs none.
func (p ProviderCfg) RequiredEnv() []string {
	if p.APIKey == "" {
		return providers.EnvKeys[p.Type]
	}
	return EnvReferences(p.APIKey)
}
