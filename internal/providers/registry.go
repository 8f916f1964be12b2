package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Provider types understood by the registry.
const (
	TypeOpenAI     = OpenAIName
	TypeDeepInfra  = DeepInfraName
	TypeOpenRouter = OpenRouterName
	TypeAnthropic  = AnthropicName
	TypeMock       = MockClientName
)

// EnvKeys maps provider types to the environment variables holding their credentials.
var EnvKeys = map[string][]string{
	TypeOpenAI:     {OpenAIEnvKey},
	TypeDeepInfra:  {DeepInfraEnvKey},
	TypeOpenRouter: {OpenRouterEnvKey},
	TypeAnthropic:  {AnthropicEnvKey},
	TypeMock:       nil,
}

// Registry holds named transports built from configuration.
// It supports hot-reload and provides thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]registered
	logger     *slog.Logger
}

type registered struct {
	transport Transport
	cfg       ProviderConfig
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]registered),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a transport by name.
func (r *Registry) Register(name string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[name] = registered{transport: t}
	if r.logger != nil {
		r.logger.Info("registered provider", "name", name)
	}
}

// Unregister removes a transport by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.transports, name)
	if r.logger != nil {
		r.logger.Info("unregistered provider", "name", name)
	}
}

// Get returns a transport by name.
func (r *Registry) Get(name string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.transports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return reg.transport, nil
}

// Config returns the configuration a transport was built from.
func (r *Registry) Config(name string) (ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.transports[name]
	return reg.cfg, ok
}

// Has checks if a transport is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transports[name]
	return ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transports))
	for name := range r.transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// ProviderConfig matches config.ProviderCfg with the API key resolved.
type ProviderConfig struct {
	Type       string        // "openai", "deepinfra", "openrouter", "anthropic", "mock"
	Model      string        // Default model
	APIKey     string        // Resolved API key
	BaseURL    string        // Optional endpoint override
	RateLimit  int           // Requests per minute (0 = unlimited)
	Timeout    time.Duration // HTTP timeout
	MaxRetries int
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Providers whose type needs a key and has none are skipped.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.Providers {
		if provCfg.APIKey == "" && len(EnvKeys[provCfg.Type]) > 0 {
			continue
		}

		existing, hasExisting := r.transports[name]
		if hasExisting && existing.cfg == provCfg {
			want[name] = true
			continue
		}

		t, err := NewTransport(provCfg)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping provider", "name", name, "error", err)
			}
			continue
		}
		want[name] = true
		r.transports[name] = registered{transport: t, cfg: provCfg}
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered provider", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.transports {
		if !want[name] {
			delete(r.transports, name)
			if r.logger != nil {
				r.logger.Info("unregistered provider", "name", name)
			}
		}
	}
}

// NewTransport creates a transport based on provider type. A positive
// RateLimit wraps it in a RateLimited transport.
func NewTransport(cfg ProviderConfig) (Transport, error) {
	var t Transport
	switch cfg.Type {
	case TypeOpenAI:
		t = NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
		})
	case TypeDeepInfra:
		t = NewDeepInfraClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
		})
	case TypeOpenRouter:
		t = NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
		})
	case TypeAnthropic:
		t = NewAnthropicClient(AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
		})
	case TypeMock:
		t = NewMockClient()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Type)
	}

	if cfg.RateLimit > 0 {
		t = NewRateLimited(t, NewRateLimiter(cfg.RateLimit))
	}
	return t, nil
}
