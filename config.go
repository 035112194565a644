package dbpool

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	// DefaultMaxHandles is the pool capacity used when MaxHandles is zero.
	DefaultMaxHandles = 50

	// DefaultIdleTimeout is how long an unused handle stays in the pool when
	// IdleTimeout is zero.
	DefaultIdleTimeout = 30 * time.Second

	// DefaultDriver is the driver LoadConfig selects when none is configured.
	DefaultDriver = "pgx"
)

// Config holds the configuration for creating a handle pool.
type Config struct {
	// Name identifies the pool in logs and metrics. Defaults to Driver.
	Name string `mapstructure:"name"`

	// Driver is the registered driver used to build sessions.
	// Ignored when Dialer is set.
	Driver string `mapstructure:"driver"`

	// Credentials are applied to every handle the pool creates.
	Credentials Credentials `mapstructure:"credentials"`

	// MaxHandles is the maximum number of handles, idle plus checked out.
	MaxHandles int `mapstructure:"max_handles"`

	// IdleTimeout is how long a handle may sit unused before it is destroyed.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ReapInterval is how often idle handles are checked against IdleTimeout.
	// Defaults to IdleTimeout / 2.
	ReapInterval time.Duration `mapstructure:"reap_interval"`

	// Dialer overrides the registered driver. Mostly useful in tests.
	Dialer Dialer `mapstructure:"-"`

	// Logger receives pool and executor logs. Defaults to a no-op logger.
	Logger *zap.Logger `mapstructure:"-"`

	// Registerer, if set, receives the pool's Prometheus collectors. Pools
	// sharing a Registerer need distinct names while both are open.
	Registerer prometheus.Registerer `mapstructure:"-"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Driver == "" && c.Dialer == nil {
		return errors.New("Driver or Dialer is required")
	}

	if c.MaxHandles < 0 {
		return fmt.Errorf("MaxHandles must not be negative, got %d", c.MaxHandles)
	}

	if c.MaxHandles > math.MaxInt32 {
		return fmt.Errorf("MaxHandles must not exceed %d, got %d", math.MaxInt32, c.MaxHandles)
	}

	if c.IdleTimeout < 0 {
		return fmt.Errorf("IdleTimeout must not be negative, got %s", c.IdleTimeout)
	}

	if c.ReapInterval < 0 {
		return fmt.Errorf("ReapInterval must not be negative, got %s", c.ReapInterval)
	}

	if c.Credentials.Port < 0 || c.Credentials.Port > 65535 {
		return fmt.Errorf("Port must be between 0 and 65535, got %d", c.Credentials.Port)
	}

	return nil
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = c.Driver
	}
	if c.MaxHandles == 0 {
		c.MaxHandles = DefaultMaxHandles
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = c.IdleTimeout / 2
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// LoadConfig reads a Config from an optional YAML file and DBPOOL_* environment
// variables. An empty path skips the file. Nested keys map to env vars with
// underscores, e.g. credentials.host is DBPOOL_CREDENTIALS_HOST.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("DBPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "")
	v.SetDefault("driver", DefaultDriver)
	v.SetDefault("max_handles", DefaultMaxHandles)
	v.SetDefault("idle_timeout", DefaultIdleTimeout)
	v.SetDefault("reap_interval", time.Duration(0))

	v.SetDefault("credentials.user", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("credentials.database", "")
	v.SetDefault("credentials.host", "")
	v.SetDefault("credentials.port", 0)
}
