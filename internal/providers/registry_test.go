package providers

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()

		r.Register("test", mock)

		got, err := r.Get("test")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != mock {
			t.Error("got different transport than registered")
		}
	})

	t.Run("get nonexistent", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Get("nonexistent")
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Register("b", NewMockClient())
		r.Register("a", NewMockClient())

		names := r.List()
		if len(names) != 2 || names[0] != "a" || names[1] != "b" {
			t.Errorf("List() = %v", names)
		}
	})

	t.Run("has and unregister", func(t *testing.T) {
		r := NewRegistry()
		r.Register("mine", NewMockClient())

		if !r.Has("mine") {
			t.Error("Has() = false for registered transport")
		}
		r.Unregister("mine")
		if r.Has("mine") {
			t.Error("Has() = true after Unregister")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Register("concurrent", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.Get("concurrent") // May fail, that's ok
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("builds every known type", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"openai":     {Type: TypeOpenAI, APIKey: "k"},
				"deepinfra":  {Type: TypeDeepInfra, APIKey: "k"},
				"openrouter": {Type: TypeOpenRouter, APIKey: "k"},
				"anthropic":  {Type: TypeAnthropic, APIKey: "k"},
				"mock":       {Type: TypeMock},
			},
		})

		if got := len(r.List()); got != 5 {
			t.Fatalf("registered %d providers, want 5: %v", got, r.List())
		}
		di, _ := r.Get("deepinfra")
		if di.Name() != DeepInfraName {
			t.Errorf("deepinfra Name() = %q", di.Name())
		}
	})

	t.Run("skips providers without key", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"openai": {Type: TypeOpenAI},
			},
		})
		if r.Has("openai") {
			t.Error("provider without API key should be skipped")
		}
	})

	t.Run("skips unknown types", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"weird": {Type: "weird", APIKey: "k"},
			},
		})
		if r.Has("weird") {
			t.Error("unknown provider type should be skipped")
		}
	})

	t.Run("rate limit wraps transport", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"limited": {Type: TypeMock, RateLimit: 30},
			},
		})
		tr, err := r.Get("limited")
		if err != nil {
			t.Fatal(err)
		}
		rl, ok := tr.(*RateLimited)
		if !ok {
			t.Fatalf("expected *RateLimited, got %T", tr)
		}
		if rl.Limiter().Status().TokensLimit != 30 {
			t.Errorf("TokensLimit = %d", rl.Limiter().Status().TokensLimit)
		}
		if rl.Name() != MockClientName {
			t.Errorf("Name() = %q", rl.Name())
		}
	})
}

func TestNewTransport_Unknown(t *testing.T) {
	_, err := NewTransport(ProviderConfig{Type: "nope"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRegistry_Reload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"a": {Type: TypeMock, Model: "m1"},
			"b": {Type: TypeOpenAI, APIKey: "k1"},
		},
	})
	before, _ := r.Get("a")

	t.Run("unchanged provider is kept", func(t *testing.T) {
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"a": {Type: TypeMock, Model: "m1"},
				"b": {Type: TypeOpenAI, APIKey: "k1"},
			},
		})
		after, _ := r.Get("a")
		if after != before {
			t.Error("unchanged provider should not be recreated")
		}
	})

	t.Run("changed provider is recreated", func(t *testing.T) {
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"a": {Type: TypeMock, Model: "m2"},
				"b": {Type: TypeOpenAI, APIKey: "k1"},
			},
		})
		after, _ := r.Get("a")
		if after == before {
			t.Error("changed provider should be recreated")
		}
		cfg, ok := r.Config("a")
		if !ok || cfg.Model != "m2" {
			t.Errorf("Config(a) = %+v, %v", cfg, ok)
		}
	})

	t.Run("removed provider is unregistered", func(t *testing.T) {
		r.Reload(RegistryConfig{
			Providers: map[string]ProviderConfig{
				"a": {Type: TypeMock, Model: "m2"},
			},
		})
		if r.Has("b") {
			t.Error("removed provider should be unregistered")
		}
		if !r.Has("a") {
			t.Error("kept provider should remain")
		}
	})
}
