package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPollInterval      = 10 * time.Minute
	DefaultCacheMaxSize      = 50
	DefaultCacheLimit        = 10
	DefaultDeliveryTimeout   = 10 * time.Second
	DefaultMaxConcurrency    = 4
	DefaultDeliveryBurst     = 1
	DefaultDeliveryUsername  = "LawCast"
	DefaultMaxActive         = 100
	DefaultShutdownGrace     = 30 * time.Second
	DefaultFeedFetchTimeout  = 15 * time.Second
	defaultServiceName       = "lawcast"
	minimumPollInterval      = time.Second
	maximumDeliveryRateLimit = 1000
)

type PollConfig struct {
	Interval           time.Duration `koanf:"interval" mapstructure:"interval"`
	AllowDegradedStart bool          `koanf:"allow_degraded_start" mapstructure:"allow_degraded_start"`
}

type CacheConfig struct {
	MaxSize      int `koanf:"max_size" mapstructure:"max_size"`
	DefaultLimit int `koanf:"default_limit" mapstructure:"default_limit"`
}

type DeliveryConfig struct {
	Timeout        time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxConcurrency int           `koanf:"max_concurrency" mapstructure:"max_concurrency"`
	RatePerSecond  float64       `koanf:"rate_per_second" mapstructure:"rate_per_second"`
	Burst          int           `koanf:"burst" mapstructure:"burst"`
	Username       string        `koanf:"username" mapstructure:"username"`
	AvatarURL      string        `koanf:"avatar_url" mapstructure:"avatar_url"`
}

type RegistryConfig struct {
	MaxActive int `koanf:"max_active" mapstructure:"max_active"`
}

type ShutdownConfig struct {
	Grace time.Duration `koanf:"grace" mapstructure:"grace"`
}

type FeedConfig struct {
	URL     string        `koanf:"url" mapstructure:"url"`
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Poll        PollConfig     `koanf:"poll" mapstructure:"poll"`
	Cache       CacheConfig    `koanf:"cache" mapstructure:"cache"`
	Delivery    DeliveryConfig `koanf:"delivery" mapstructure:"delivery"`
	Registry    RegistryConfig `koanf:"registry" mapstructure:"registry"`
	Shutdown    ShutdownConfig `koanf:"shutdown" mapstructure:"shutdown"`
	Feed        FeedConfig     `koanf:"feed" mapstructure:"feed"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: defaultServiceName,
		Poll: PollConfig{
			Interval: DefaultPollInterval,
		},
		Cache: CacheConfig{
			MaxSize:      DefaultCacheMaxSize,
			DefaultLimit: DefaultCacheLimit,
		},
		Delivery: DeliveryConfig{
			Timeout:        DefaultDeliveryTimeout,
			MaxConcurrency: DefaultMaxConcurrency,
			Burst:          DefaultDeliveryBurst,
			Username:       DefaultDeliveryUsername,
		},
		Registry: RegistryConfig{
			MaxActive: DefaultMaxActive,
		},
		Shutdown: ShutdownConfig{
			Grace: DefaultShutdownGrace,
		},
		Feed: FeedConfig{
			Timeout: DefaultFeedFetchTimeout,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Poll.Interval < minimumPollInterval {
		return fmt.Errorf("core: poll.interval must be at least %s", minimumPollInterval)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("core: cache.max_size must be positive")
	}
	if c.Cache.DefaultLimit <= 0 {
		return fmt.Errorf("core: cache.default_limit must be positive")
	}
	if c.Delivery.Timeout <= 0 {
		return fmt.Errorf("core: delivery.timeout must be positive")
	}
	if c.Delivery.MaxConcurrency <= 0 {
		return fmt.Errorf("core: delivery.max_concurrency must be positive")
	}
	if c.Delivery.RatePerSecond < 0 || c.Delivery.RatePerSecond > maximumDeliveryRateLimit {
		return fmt.Errorf("core: delivery.rate_per_second must be between 0 and %d", maximumDeliveryRateLimit)
	}
	if c.Delivery.RatePerSecond > 0 && c.Delivery.Burst <= 0 {
		return fmt.Errorf("core: delivery.burst must be positive when rate limiting is enabled")
	}
	if c.Registry.MaxActive < 0 {
		return fmt.Errorf("core: registry.max_active must be >= 0")
	}
	if c.Shutdown.Grace < 0 {
		return fmt.Errorf("core: shutdown.grace must be >= 0")
	}
	return nil
}
