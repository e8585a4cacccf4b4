package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	OTP       OTPConfig       `mapstructure:"otp"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug|release|test
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json|text
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
	AuditRetentionDays     int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
}

type RateLimitConfig struct {
	// Backend selects the store: memory, redis or postgres.
	Backend             string                  `mapstructure:"backend"`
	StoreTimeoutMs      int                     `mapstructure:"store_timeout_ms"`
	MaxRetries          int                     `mapstructure:"max_retries"`
	StaleAfterHours     int                     `mapstructure:"stale_after_hours"`
	SweepBatchSize      int                     `mapstructure:"sweep_batch_size"`
	SweepMaxBatches     int                     `mapstructure:"sweep_max_batches"`
	SweepBatchesPerSec  float64                 `mapstructure:"sweep_batches_per_sec"`
	SweepIntervalMinute int                     `mapstructure:"sweep_interval_minutes"`
	Presets             map[string]PresetConfig `mapstructure:"presets"`
}

// PresetConfig overrides one entry of the built-in preset table.
type PresetConfig struct {
	MaxRequests   int    `mapstructure:"max_requests"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	Message       string `mapstructure:"message"`
}

type OTPConfig struct {
	Length      int `mapstructure:"length"`
	TTLSeconds  int `mapstructure:"ttl_seconds"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type AuditConfig struct {
	LogDir     string `mapstructure:"log_dir"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.admin_key", "")
	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)
	v.SetDefault("redis.key_prefix", "quickpay")
	v.SetDefault("redis.audit_list_key", "audit_logs")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.store_timeout_ms", 3000)
	v.SetDefault("ratelimit.max_retries", 5)
	v.SetDefault("ratelimit.stale_after_hours", 24)
	v.SetDefault("ratelimit.sweep_batch_size", 500)
	v.SetDefault("ratelimit.sweep_max_batches", 20)
	v.SetDefault("ratelimit.sweep_batches_per_sec", 5)
	v.SetDefault("ratelimit.sweep_interval_minutes", 60)
	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl_seconds", 300)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("audit.log_dir", "./logs")
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads config.yaml (from . or ./configs), a local .env file and
// QUICKPAY_* environment variables, in increasing priority.
func Load() (*Config, error) {
	// .env is a local-development convenience; missing file is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. QUICKPAY_REDIS_ADDR, QUICKPAY_RATELIMIT_BACKEND
	v.SetEnvPrefix("quickpay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("ratelimit.backend=redis requires redis.addr")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("ratelimit.backend=postgres requires database.dsn")
		}
	default:
		return fmt.Errorf("unknown ratelimit.backend %q (want memory|redis|postgres)", c.RateLimit.Backend)
	}
	if c.RateLimit.SweepBatchSize <= 0 || c.RateLimit.SweepBatchSize > 500 {
		return fmt.Errorf("ratelimit.sweep_batch_size must be in 1..500")
	}
	for name, p := range c.RateLimit.Presets {
		if p.MaxRequests <= 0 || p.WindowSeconds <= 0 {
			return fmt.Errorf("ratelimit.presets.%s: max_requests and window_seconds must be positive", name)
		}
	}
	return nil
}
