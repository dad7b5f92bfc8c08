package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "LAWCAST_"

type envKind int

const (
	envString envKind = iota
	envInt
	envFloat
	envBool
	envDuration
)

type envBinding struct {
	name string
	path string
	kind envKind
}

var serviceEnvBindings = []envBinding{
	{name: "SERVICE_NAME", path: "service_name", kind: envString},
	{name: "POLL_INTERVAL", path: "poll.interval", kind: envDuration},
	{name: "POLL_ALLOW_DEGRADED_START", path: "poll.allow_degraded_start", kind: envBool},
	{name: "CACHE_MAX_SIZE", path: "cache.max_size", kind: envInt},
	{name: "CACHE_DEFAULT_LIMIT", path: "cache.default_limit", kind: envInt},
	{name: "DELIVERY_TIMEOUT", path: "delivery.timeout", kind: envDuration},
	{name: "DELIVERY_MAX_CONCURRENCY", path: "delivery.max_concurrency", kind: envInt},
	{name: "DELIVERY_RATE_PER_SECOND", path: "delivery.rate_per_second", kind: envFloat},
	{name: "DELIVERY_BURST", path: "delivery.burst", kind: envInt},
	{name: "DELIVERY_USERNAME", path: "delivery.username", kind: envString},
	{name: "DELIVERY_AVATAR_URL", path: "delivery.avatar_url", kind: envString},
	{name: "REGISTRY_MAX_ACTIVE", path: "registry.max_active", kind: envInt},
	{name: "SHUTDOWN_GRACE", path: "shutdown.grace", kind: envDuration},
	{name: "FEED_URL", path: "feed.url", kind: envString},
	{name: "FEED_TIMEOUT", path: "feed.timeout", kind: envDuration},
}

// envLoader reads LAWCAST_* variables into the nested map the cfgx provider
// expects. Unset variables are left out so lower layers keep their values.
type envLoader struct {
	lookup func(string) (string, bool)
}

func newEnvLoader() envLoader {
	return envLoader{lookup: os.LookupEnv}
}

func (l envLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := map[string]any{}
	for _, binding := range serviceEnvBindings {
		raw, ok := lookup(envPrefix + binding.name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		value, err := parseEnvValue(binding.kind, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("lawcastd: %s%s: %w", envPrefix, binding.name, err)
		}
		setPath(out, binding.path, value)
	}
	return out, nil
}

func parseEnvValue(kind envKind, raw string) (any, error) {
	switch kind {
	case envInt:
		return strconv.Atoi(raw)
	case envFloat:
		return strconv.ParseFloat(raw, 64)
	case envBool:
		return strconv.ParseBool(raw)
	case envDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func setPath(root map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

type databaseConfig struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func loadDatabaseConfig(lookup func(string) (string, bool)) (databaseConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := databaseConfig{
		Driver:      driverSQLite,
		DSN:         "file:lawcast.db?_foreign_keys=on",
		PingTimeout: 5 * time.Second,
	}
	if value, ok := lookup(envPrefix + "DB_DRIVER"); ok && strings.TrimSpace(value) != "" {
		cfg.Driver = strings.ToLower(strings.TrimSpace(value))
	}
	if value, ok := lookup(envPrefix + "DB_DSN"); ok && strings.TrimSpace(value) != "" {
		cfg.DSN = strings.TrimSpace(value)
	}
	if value, ok := lookup(envPrefix + "DB_DEBUG"); ok && strings.TrimSpace(value) != "" {
		debug, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return databaseConfig{}, fmt.Errorf("lawcastd: %sDB_DEBUG: %w", envPrefix, err)
		}
		cfg.Debug = debug
	}
	switch cfg.Driver {
	case driverSQLite, driverPostgres:
	default:
		return databaseConfig{}, fmt.Errorf("lawcastd: unsupported database driver %q", cfg.Driver)
	}
	return cfg, nil
}

func (c databaseConfig) GetDebug() bool {
	return c.Debug
}

func (c databaseConfig) GetDriver() string {
	return c.Driver
}

func (c databaseConfig) GetServer() string {
	return c.DSN
}

func (c databaseConfig) GetPingTimeout() time.Duration {
	return c.PingTimeout
}

func (c databaseConfig) GetOtelIdentifier() string {
	return "lawcastd"
}

type verifierConfig struct {
	Secret      string
	URL         string
	MinScore    float64
	BurstWindow time.Duration
}

func loadVerifierConfig(lookup func(string) (string, bool)) (verifierConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := verifierConfig{}
	if value, ok := lookup(envPrefix + "VERIFY_SECRET"); ok {
		cfg.Secret = strings.TrimSpace(value)
	}
	if value, ok := lookup(envPrefix + "VERIFY_URL"); ok {
		cfg.URL = strings.TrimSpace(value)
	}
	if value, ok := lookup(envPrefix + "VERIFY_MIN_SCORE"); ok && strings.TrimSpace(value) != "" {
		score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return verifierConfig{}, fmt.Errorf("lawcastd: %sVERIFY_MIN_SCORE: %w", envPrefix, err)
		}
		cfg.MinScore = score
	}
	if value, ok := lookup(envPrefix + "REGISTRATION_BURST_WINDOW"); ok && strings.TrimSpace(value) != "" {
		window, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return verifierConfig{}, fmt.Errorf("lawcastd: %sREGISTRATION_BURST_WINDOW: %w", envPrefix, err)
		}
		cfg.BurstWindow = window
	}
	return cfg, nil
}
