package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/emrecanisildak/diet/pkg/config"
	pkgdb "github.com/emrecanisildak/diet/pkg/database"
	pkglog "github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Database  DatabaseConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Push      PushConfig
	Redis     RedisConfig
	Events    pubsub.Config
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// Gorm converts the section into the shared database config.
func (d DatabaseConfig) Gorm() *pkgdb.Config {
	return &pkgdb.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		FilePath:        d.FilePath,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		LogLevel:        d.LogLevel,
	}
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Algorithm       string        `mapstructure:"algorithm"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	RoleCacheSize   int           `mapstructure:"role_cache_size"`
	RoleCacheTTL    time.Duration `mapstructure:"role_cache_ttl"`
}

type SchedulerConfig struct {
	Enabled         bool
	Interval        time.Duration
	Timezone        string
	PushTimeout     time.Duration `mapstructure:"push_timeout"`
	PushConcurrency int           `mapstructure:"push_concurrency"`
	Lease           LeaseConfig
}

type LeaseConfig struct {
	Enabled bool
	Key     string
	TTL     time.Duration
}

type PushConfig struct {
	KeyID    string `mapstructure:"key_id"`
	TeamID   string `mapstructure:"team_id"`
	BundleID string `mapstructure:"bundle_id"`
	KeyPath  string `mapstructure:"key_path"`
	Sandbox  bool
	Breaker  BreakerConfig
}

// Configured reports whether APNs credentials are complete.
func (p PushConfig) Configured() bool {
	return p.KeyID != "" && p.TeamID != "" && p.BundleID != "" && p.KeyPath != ""
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// Location resolves the scheduler's reference timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Load reads the config and returns the viper instance so callers can watch it.
func Load() (*Config, *viper.Viper, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, nil, err
	}

	setDefaults(v)
	bindEnv(v)

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 64)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "diet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/diet.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.role_cache_size", 1024)
	v.SetDefault("auth.role_cache_ttl", "1m")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.push_timeout", "10s")
	v.SetDefault("scheduler.push_concurrency", 16)
	v.SetDefault("scheduler.lease.enabled", false)
	v.SetDefault("scheduler.lease.key", "diet:scheduler:tick")
	v.SetDefault("scheduler.lease.ttl", "50s")
	v.SetDefault("push.sandbox", true)
	v.SetDefault("push.breaker.max_requests", 1)
	v.SetDefault("push.breaker.interval", "60s")
	v.SetDefault("push.breaker.timeout", "30s")
	v.SetDefault("push.breaker.failure_threshold", 5)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.driver", pubsub.DriverNone)
	v.SetDefault("events.queue_size", 256)
	v.SetDefault("events.timeout", "3s")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "diet-api")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("database.driver", "DATABASE_DRIVER", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET", "SECRET_KEY")
	v.BindEnv("scheduler.interval", "SCHEDULER_INTERVAL")
	v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	v.BindEnv("scheduler.lease.enabled", "SCHEDULER_LEASE_ENABLED")
	v.BindEnv("push.key_id", "APNS_KEY_ID")
	v.BindEnv("push.team_id", "APNS_TEAM_ID")
	v.BindEnv("push.bundle_id", "APNS_BUNDLE_ID")
	v.BindEnv("push.key_path", "APNS_KEY_PATH")
	v.BindEnv("push.sandbox", "APNS_USE_SANDBOX")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	if cfg.Auth.Algorithm != "HS256" {
		return nil, fmt.Errorf("unsupported auth.algorithm %q: only HS256 is supported", cfg.Auth.Algorithm)
	}
	if cfg.Scheduler.Interval <= 0 || cfg.Scheduler.Interval > time.Minute {
		return nil, fmt.Errorf("scheduler.interval must be in (0, 1m], got %s", cfg.Scheduler.Interval)
	}
	if _, err := cfg.Scheduler.Location(); err != nil {
		return nil, err
	}
	if cfg.Scheduler.Lease.Enabled && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("scheduler.lease.enabled requires redis.address")
	}
	if cfg.Events.Driver == pubsub.DriverRedis && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("events.driver redis requires redis.address")
	}

	return &cfg, nil
}
