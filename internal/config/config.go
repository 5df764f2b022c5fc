package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
	Distribution DistributionConfig `mapstructure:"distribution"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// 仅作分发锁后端，连接数随分发并发度调整
	PoolSize           int `mapstructure:"pool_size"`
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"` // debug, info, warn, error；为空时按 server.mode
}

// DistributionConfig 控制分发扇出与本地化锁
type DistributionConfig struct {
	MaxWorkers         int    `mapstructure:"max_workers"`
	NodeTimeoutSeconds int    `mapstructure:"node_timeout_seconds"`
	LockBackend        string `mapstructure:"lock_backend"` // local, redis
	LockTTLSeconds     int    `mapstructure:"lock_ttl_seconds"`
	ScheduleSpec       string `mapstructure:"schedule_spec"`
	ReviewAlertHours   int    `mapstructure:"review_alert_hours"`
}

func (d DistributionConfig) NodeTimeout() time.Duration {
	return time.Duration(d.NodeTimeoutSeconds) * time.Second
}

func (d DistributionConfig) LockTTL() time.Duration {
	return time.Duration(d.LockTTLSeconds) * time.Second
}

func (d DistributionConfig) ReviewAlertAfter() time.Duration {
	return time.Duration(d.ReviewAlertHours) * time.Hour
}

const (
	defaultMaxWorkers       = 8
	defaultNodeTimeout      = 10
	defaultLockTTL          = 30
	defaultScheduleSpec     = "@every 1m"
	defaultReviewAlertHours = 72
)

// ApplyDefaults 填充未配置的分发参数
func (d *DistributionConfig) ApplyDefaults() {
	if d.MaxWorkers <= 0 {
		d.MaxWorkers = defaultMaxWorkers
	}
	if d.NodeTimeoutSeconds <= 0 {
		d.NodeTimeoutSeconds = defaultNodeTimeout
	}
	if d.LockBackend == "" {
		d.LockBackend = "local"
	}
	if d.LockTTLSeconds <= 0 {
		d.LockTTLSeconds = defaultLockTTL
	}
	if d.ScheduleSpec == "" {
		d.ScheduleSpec = defaultScheduleSpec
	}
	if d.ReviewAlertHours <= 0 {
		d.ReviewAlertHours = defaultReviewAlertHours
	}
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDU_NETWORK")
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Distribution
	v.BindEnv("distribution.max_workers", "DISTRIBUTION_MAX_WORKERS")
	v.BindEnv("distribution.lock_backend", "DISTRIBUTION_LOCK_BACKEND")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Distribution.ApplyDefaults()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Distribution.LockBackend != "local" && cfg.Distribution.LockBackend != "redis" {
		return nil, fmt.Errorf("unknown distribution lock backend %q", cfg.Distribution.LockBackend)
	}

	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath != "" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}
