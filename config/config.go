// Package config loads engine tunables from the environment, validating
// the result before it reaches any component.
package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// ServerConfig holds the HTTP surface's own tunables.
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// CircuitBreakerConfig mirrors the CB_* environment keys.
type CircuitBreakerConfig struct {
	RollingWindowSize    int     `mapstructure:"rolling_window_size"`
	RollingWindowSeconds int     `mapstructure:"rolling_window_seconds"`
	TripThreshold        float64 `mapstructure:"trip_threshold"`
	CooldownSeconds      int     `mapstructure:"cooldown_seconds"`
	MinSamples           int     `mapstructure:"min_samples"`
}

// BackoffConfig mirrors the BACKOFF_* environment keys.
type BackoffConfig struct {
	BaseSeconds float64 `mapstructure:"base_seconds"`
	MaxSeconds  float64 `mapstructure:"max_seconds"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// ProcessorConfig mirrors the PROCESSOR_TIMEOUT_SECONDS key.
type ProcessorConfig struct {
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

// BreakerWatchConfig tunes the background breaker-state logger.
type BreakerWatchConfig struct {
	Interval string `mapstructure:"interval"`
}

// LoggingConfig tunes the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full set of engine tunables, sourced from environment
// variables such as CB_ROLLING_WINDOW_SIZE, BACKOFF_BASE_SECONDS, and
// PROCESSOR_TIMEOUT_SECONDS via viper's automatic env mapping.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	CB             CircuitBreakerConfig `mapstructure:"cb"`
	Backoff        BackoffConfig        `mapstructure:"backoff"`
	Processor      ProcessorConfig      `mapstructure:"processor"`
	BreakerWatch   BreakerWatchConfig   `mapstructure:"breaker_watch"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// Load reads configuration from an optional config file plus environment
// variables, applying the documented default for every key that is unset.
func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")

	viper.SetDefault("cb.rolling_window_size", 50)
	viper.SetDefault("cb.rolling_window_seconds", 300)
	viper.SetDefault("cb.trip_threshold", 0.20)
	viper.SetDefault("cb.cooldown_seconds", 120)
	viper.SetDefault("cb.min_samples", 5)

	viper.SetDefault("backoff.base_seconds", 0.5)
	viper.SetDefault("backoff.max_seconds", 30)
	viper.SetDefault("backoff.max_retries", 2)

	viper.SetDefault("processor.timeout_seconds", 3.0)

	viper.SetDefault("breaker_watch.interval", "10s")

	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the engine's invariants over configuration: positive
// window sizes, a non-negative cooldown, a threshold in [0,1], and a sane
// environment and log level.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment, validation.Required, validation.In(EnvDev, EnvStaging, EnvProd)),
					validation.Field(&sc.Address, validation.Required, validation.By(validateHostPort)),
				)
			}),
		),
		validation.Field(&c.CB,
			validation.Required,
			validation.By(func(value interface{}) error {
				cb, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cb,
					validation.Field(&cb.RollingWindowSize, validation.Min(1)),
					validation.Field(&cb.RollingWindowSeconds, validation.Min(1)),
					validation.Field(&cb.TripThreshold, validation.Min(0.0), validation.Max(1.0)),
					validation.Field(&cb.CooldownSeconds, validation.Min(0)),
					validation.Field(&cb.MinSamples, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Backoff,
			validation.Required,
			validation.By(func(value interface{}) error {
				b, ok := value.(BackoffConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BackoffConfig")
				}
				return validation.ValidateStruct(&b,
					validation.Field(&b.BaseSeconds, validation.Min(0.0)),
					validation.Field(&b.MaxSeconds, validation.Min(0.0)),
					validation.Field(&b.MaxRetries, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.Processor,
			validation.Required,
			validation.By(func(value interface{}) error {
				p, ok := value.(ProcessorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProcessorConfig")
				}
				return validation.ValidateStruct(&p,
					validation.Field(&p.TimeoutSeconds, validation.Min(0.001)),
				)
			}),
		),
		validation.Field(&c.BreakerWatch,
			validation.Required,
			validation.By(func(value interface{}) error {
				bw, ok := value.(BreakerWatchConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerWatchConfig")
				}
				return validation.ValidateStruct(&bw,
					validation.Field(&bw.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level, validation.Required, validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

// WindowSeconds returns the rolling window age bound as a time.Duration.
func (c *CircuitBreakerConfig) WindowSeconds() time.Duration {
	return time.Duration(c.RollingWindowSeconds) * time.Second
}

// Cooldown returns the breaker cooldown as a time.Duration.
func (c *CircuitBreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Base returns the backoff base delay as a time.Duration.
func (b *BackoffConfig) Base() time.Duration {
	return time.Duration(b.BaseSeconds * float64(time.Second))
}

// Cap returns the backoff cap as a time.Duration.
func (b *BackoffConfig) Cap() time.Duration {
	return time.Duration(b.MaxSeconds * float64(time.Second))
}

// Timeout returns the per-call processor timeout as a time.Duration.
func (p *ProcessorConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds * float64(time.Second))
}
