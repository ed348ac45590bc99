// Package config loads the subgraph's layered configuration (defaults,
// then config file, then environment) via spf13/viper, matching the
// layering convention used across the corpus's other cobra-based
// services.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration surface (spec §6 plus the
// ambient C0/C7 keys SPEC_FULL §1.1/§6 add).
type Config struct {
	Database      DatabaseConfig
	Sibling       SiblingConfig
	CircuitBreaker CircuitBreakerConfig
	Pagination    PaginationConfig
	Query         QueryConfig
	Loader        LoaderConfig
	Server        ServerConfig
	Log           LogConfig
	Auth          AuthConfig
}

type DatabaseConfig struct {
	URL  string
	Pool PoolConfig
}

type PoolConfig struct {
	Min           int
	Max           int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
}

// SiblingConfig holds the per-sibling-subgraph client settings (§6:
// "Timeouts, retry, and circuit-breaker parameters are configurable at
// start-up").
type SiblingConfig struct {
	Users  SiblingTargetConfig
	Offers SiblingTargetConfig
}

type SiblingTargetConfig struct {
	URL      string
	Timeout  time.Duration
	RetryMax int
}

type CircuitBreakerConfig struct {
	Window          time.Duration
	FailureRatio    float64
	Cooldown        time.Duration
	HalfOpenProbes  int
}

type PaginationConfig struct {
	MaxFirst     int
	DefaultFirst int
}

type QueryConfig struct {
	MaxDepth      int
	MaxComplexity int
}

type LoaderConfig struct {
	MaxBatch int
	Tick     time.Duration
}

type ServerConfig struct {
	Addr            string
	MaxInflight     int
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	JWTIssuer string
}

// Load builds a Config from defaults, an optional config file at path
// (ignored if empty or missing), then environment variables prefixed
// UGC_ (nested keys use "_" in place of "."), in ascending precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UGC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	return unmarshal(v)
}

// Watch re-invokes onChange with a freshly reloaded Config whenever the
// backing file at path changes, matching the hot-reload requirement
// SPEC_FULL §1.1 attaches to the teacher's existing fsnotify dependency.
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("UGC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
			Pool: PoolConfig{
				Min:            v.GetInt("database.pool.min"),
				Max:            v.GetInt("database.pool.max"),
				AcquireTimeout: v.GetDuration("database.pool.acquire_timeout"),
				IdleTimeout:    v.GetDuration("database.pool.idle_timeout"),
				MaxLifetime:    v.GetDuration("database.pool.max_lifetime"),
			},
		},
		Sibling: SiblingConfig{
			Users: SiblingTargetConfig{
				URL:      v.GetString("sibling.users.url"),
				Timeout:  v.GetDuration("sibling.users.timeout"),
				RetryMax: v.GetInt("sibling.users.retry_max"),
			},
			Offers: SiblingTargetConfig{
				URL:      v.GetString("sibling.offers.url"),
				Timeout:  v.GetDuration("sibling.offers.timeout"),
				RetryMax: v.GetInt("sibling.offers.retry_max"),
			},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Window:         v.GetDuration("circuit_breaker.window"),
			FailureRatio:   v.GetFloat64("circuit_breaker.failure_ratio"),
			Cooldown:       v.GetDuration("circuit_breaker.cooldown"),
			HalfOpenProbes: v.GetInt("circuit_breaker.half_open_probes"),
		},
		Pagination: PaginationConfig{
			MaxFirst:     v.GetInt("pagination.max_first"),
			DefaultFirst: v.GetInt("pagination.default_first"),
		},
		Query: QueryConfig{
			MaxDepth:      v.GetInt("query.max_depth"),
			MaxComplexity: v.GetInt("query.max_complexity"),
		},
		Loader: LoaderConfig{
			MaxBatch: v.GetInt("loader.max_batch"),
			Tick:     v.GetDuration("loader.tick"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			MaxInflight:     v.GetInt("server.max_inflight"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Auth: AuthConfig{
			JWTIssuer: v.GetString("auth.jwt.issuer"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.pool.min", 2)
	v.SetDefault("database.pool.max", 10)
	v.SetDefault("database.pool.acquire_timeout", "5s")
	v.SetDefault("database.pool.idle_timeout", "5m")
	v.SetDefault("database.pool.max_lifetime", "30m")

	v.SetDefault("sibling.users.timeout", "2s")
	v.SetDefault("sibling.users.retry_max", 1)
	v.SetDefault("sibling.offers.timeout", "2s")
	v.SetDefault("sibling.offers.retry_max", 1)

	v.SetDefault("circuit_breaker.window", "30s")
	v.SetDefault("circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("circuit_breaker.cooldown", "30s")
	v.SetDefault("circuit_breaker.half_open_probes", 1)

	v.SetDefault("pagination.max_first", 100)
	v.SetDefault("pagination.default_first", 20)

	v.SetDefault("query.max_depth", 12)
	v.SetDefault("query.max_complexity", 1000)

	v.SetDefault("loader.max_batch", 100)
	v.SetDefault("loader.tick", "1ms")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_inflight", 256)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
