package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded config < runtime overrides.
// Zero values in the loaded and runtime layers never override a lower layer.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = strings.TrimSpace(cfg.ServiceName)
	}

	poll := map[string]any{}
	if includeZero || cfg.Poll.Interval > 0 {
		poll["interval"] = cfg.Poll.Interval
	}
	if includeZero || cfg.Poll.AllowDegradedStart {
		poll["allow_degraded_start"] = cfg.Poll.AllowDegradedStart
	}
	putSection(layer, "poll", poll)

	cache := map[string]any{}
	if includeZero || cfg.Cache.MaxSize > 0 {
		cache["max_size"] = cfg.Cache.MaxSize
	}
	if includeZero || cfg.Cache.DefaultLimit > 0 {
		cache["default_limit"] = cfg.Cache.DefaultLimit
	}
	putSection(layer, "cache", cache)

	delivery := map[string]any{}
	if includeZero || cfg.Delivery.Timeout > 0 {
		delivery["timeout"] = cfg.Delivery.Timeout
	}
	if includeZero || cfg.Delivery.MaxConcurrency > 0 {
		delivery["max_concurrency"] = cfg.Delivery.MaxConcurrency
	}
	if includeZero || cfg.Delivery.RatePerSecond > 0 {
		delivery["rate_per_second"] = cfg.Delivery.RatePerSecond
	}
	if includeZero || cfg.Delivery.Burst > 0 {
		delivery["burst"] = cfg.Delivery.Burst
	}
	if includeZero || strings.TrimSpace(cfg.Delivery.Username) != "" {
		delivery["username"] = strings.TrimSpace(cfg.Delivery.Username)
	}
	if includeZero || strings.TrimSpace(cfg.Delivery.AvatarURL) != "" {
		delivery["avatar_url"] = strings.TrimSpace(cfg.Delivery.AvatarURL)
	}
	putSection(layer, "delivery", delivery)

	if includeZero || cfg.Registry.MaxActive > 0 {
		layer["registry"] = map[string]any{"max_active": cfg.Registry.MaxActive}
	}
	if includeZero || cfg.Shutdown.Grace > 0 {
		layer["shutdown"] = map[string]any{"grace": cfg.Shutdown.Grace}
	}

	feed := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Feed.URL) != "" {
		feed["url"] = strings.TrimSpace(cfg.Feed.URL)
	}
	if includeZero || cfg.Feed.Timeout > 0 {
		feed["timeout"] = cfg.Feed.Timeout
	}
	putSection(layer, "feed", feed)
	return layer
}

func putSection(layer map[string]any, key string, section map[string]any) {
	if len(section) == 0 {
		return
	}
	layer[key] = section
}
