package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type failingLoader struct{}

func (failingLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, errors.New("loader down")
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Cache.MaxSize != DefaultCacheMaxSize || cfg.Registry.MaxActive != DefaultMaxActive {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestConfigValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"service_name":        func(c *Config) { c.ServiceName = " " },
		"poll.interval":       func(c *Config) { c.Poll.Interval = time.Millisecond },
		"cache.max_size":      func(c *Config) { c.Cache.MaxSize = 0 },
		"max_concurrency":     func(c *Config) { c.Delivery.MaxConcurrency = 0 },
		"rate_per_second":     func(c *Config) { c.Delivery.RatePerSecond = -1 },
		"delivery.burst":      func(c *Config) { c.Delivery.RatePerSecond = 5; c.Delivery.Burst = 0 },
		"registry.max_active": func(c *Config) { c.Registry.MaxActive = -1 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCfgxConfigProvider_LoadsRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"service_name": "lawcast-test",
		"cache": map[string]any{
			"max_size": 20,
		},
		"registry": map[string]any{
			"max_active": 3,
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "lawcast-test" {
		t.Fatalf("expected service name override, got %q", cfg.ServiceName)
	}
	if cfg.Cache.MaxSize != 20 || cfg.Registry.MaxActive != 3 {
		t.Fatalf("expected nested overrides, got %#v", cfg)
	}
	if cfg.Cache.DefaultLimit != DefaultCacheLimit {
		t.Fatalf("expected default limit to survive, got %d", cfg.Cache.DefaultLimit)
	}
}

func TestCfgxConfigProvider_PropagatesLoaderError(t *testing.T) {
	_, err := NewCfgxConfigProvider(failingLoader{}).Load(context.Background(), DefaultConfig())
	if err == nil || !strings.Contains(err.Error(), "loader down") {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestGoOptionsResolver_RuntimeWins(t *testing.T) {
	defaults := DefaultConfig()
	loaded := DefaultConfig()
	loaded.ServiceName = "from-config"
	loaded.Cache.MaxSize = 30

	runtime := Config{ServiceName: "from-runtime"}
	runtime.Delivery.MaxConcurrency = 4

	resolved, err := (GoOptionsResolver{}).Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime service name, got %q", resolved.ServiceName)
	}
	if resolved.Cache.MaxSize != 30 {
		t.Fatalf("expected loaded cache size, got %d", resolved.Cache.MaxSize)
	}
	if resolved.Delivery.MaxConcurrency != 4 {
		t.Fatalf("expected runtime concurrency, got %d", resolved.Delivery.MaxConcurrency)
	}
	if resolved.Poll.Interval != DefaultPollInterval {
		t.Fatalf("expected default poll interval, got %s", resolved.Poll.Interval)
	}
}
