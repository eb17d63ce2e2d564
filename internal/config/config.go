package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Limits       LimitsConfig
	Sync         SyncConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. The JWT secret is shared with
// the external auth system that issues user and staff sessions; this service
// only verifies tokens.
type AuthConfig struct {
	JWTSecret            string
	GuestTokenBcryptCost int
}

// StorageConfig selects and configures the attachment object store.
type StorageConfig struct {
	Driver      string // "s3" or "memory"
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3BaseURL   string
}

// LimitsConfig bounds message submissions.
type LimitsConfig struct {
	MaxAttachmentsPerMessage int
	MaxAttachmentBytes       int64
}

// SyncConfig carries the poll intervals advertised to conversation clients.
type SyncConfig struct {
	InboxPollSeconds  int
	DetailPollSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("AUTH_JWT_SECRET", "dev-secret"),
			GuestTokenBcryptCost: getEnvAsInt("AUTH_GUEST_TOKEN_BCRYPT_COST", 10),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "memory"),
			S3Bucket:    os.Getenv("STORAGE_S3_BUCKET"),
			S3Region:    getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("STORAGE_S3_ENDPOINT"),
			S3PathStyle: getEnvAsBool("STORAGE_S3_PATH_STYLE", false),
			S3BaseURL:   os.Getenv("STORAGE_S3_BASE_URL"),
		},
		Limits: LimitsConfig{
			MaxAttachmentsPerMessage: getEnvAsInt("LIMITS_MAX_ATTACHMENTS", 5),
			MaxAttachmentBytes:       int64(getEnvAsInt("LIMITS_MAX_ATTACHMENT_BYTES", 10*1024*1024)),
		},
		Sync: SyncConfig{
			InboxPollSeconds:  getEnvAsInt("SYNC_INBOX_POLL_SECONDS", 15),
			DetailPollSeconds: getEnvAsInt("SYNC_DETAIL_POLL_SECONDS", 10),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// InboxPollInterval is the advertised operator inbox refresh cadence.
func (s SyncConfig) InboxPollInterval() time.Duration {
	return time.Duration(s.InboxPollSeconds) * time.Second
}

// DetailPollInterval is the advertised single-ticket refresh cadence.
func (s SyncConfig) DetailPollInterval() time.Duration {
	return time.Duration(s.DetailPollSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
