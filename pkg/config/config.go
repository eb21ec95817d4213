package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Admin storage and auth backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	AuthStatic      = "static"
	AuthUsers       = "users"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Admin       AdminConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig
	Maintenance MaintenanceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig controls encoding and the optional rotating file sink.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AdminConfig configures the server-rendered admin panel.
type AdminConfig struct {
	Enabled       bool
	Title         string
	Prefix        string
	SessionSecret string
	SessionCookie string
	SessionTTL    time.Duration
	SessionStore  string
	Auth          string
	Username      string
	Password      string
	Storage       string
	ResourcesFile string
	PageSize      int
}

// RateLimitConfig throttles login attempts per client IP.
type RateLimitConfig struct {
	LoginPerMinute int
	LoginBurst     int
}

// AuditConfig sizes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// MaintenanceConfig schedules periodic cleanup jobs.
type MaintenanceConfig struct {
	TokenPurgeSchedule string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 15*time.Minute),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.Admin = AdminConfig{
		Enabled:       v.GetBool("ADMIN_ENABLED"),
		Title:         v.GetString("ADMIN_TITLE"),
		Prefix:        strings.TrimRight(v.GetString("ADMIN_PREFIX"), "/"),
		SessionSecret: v.GetString("ADMIN_SESSION_SECRET"),
		SessionCookie: v.GetString("ADMIN_SESSION_COOKIE"),
		SessionTTL:    parseDuration(v.GetString("ADMIN_SESSION_TTL"), 24*time.Hour),
		SessionStore:  strings.ToLower(v.GetString("ADMIN_SESSION_STORE")),
		Auth:          strings.ToLower(v.GetString("ADMIN_AUTH")),
		Username:      v.GetString("ADMIN_USERNAME"),
		Password:      v.GetString("ADMIN_PASSWORD"),
		Storage:       strings.ToLower(v.GetString("ADMIN_STORAGE")),
		ResourcesFile: v.GetString("ADMIN_RESOURCES_FILE"),
		PageSize:      v.GetInt("ADMIN_PAGE_SIZE"),
	}
	if cfg.Admin.Prefix == "" {
		cfg.Admin.Prefix = "/admin"
	}

	cfg.RateLimit = RateLimitConfig{
		LoginPerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
		LoginBurst:     v.GetInt("LOGIN_RATE_BURST"),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
		MaxRetries: v.GetInt("AUDIT_MAX_RETRIES"),
	}

	cfg.Maintenance = MaintenanceConfig{
		TokenPurgeSchedule: v.GetString("TOKEN_PURGE_SCHEDULE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Admin.Prefix, "/") {
		return fmt.Errorf("ADMIN_PREFIX must start with '/', got %q", c.Admin.Prefix)
	}
	switch c.Admin.SessionStore {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("ADMIN_SESSION_STORE must be %q or %q", BackendMemory, BackendRedis)
	}
	switch c.Admin.Storage {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("ADMIN_STORAGE must be %q or %q", BackendMemory, BackendPostgres)
	}
	switch c.Admin.Auth {
	case AuthStatic, AuthUsers:
	default:
		return fmt.Errorf("ADMIN_AUTH must be %q or %q", AuthStatic, AuthUsers)
	}
	if c.Env == EnvProduction {
		if c.Admin.SessionSecret == "" || c.Admin.SessionSecret == defaultSessionSecret {
			return errors.New("ADMIN_SESSION_SECRET must be set in production")
		}
		if c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

const (
	defaultSessionSecret = "change-me-in-production"
	defaultJWTSecret     = "dev_secret"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gin_admin_kit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "gin-admin-kit")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_MAX_BACKUPS", 7)
	v.SetDefault("LOG_MAX_AGE_DAYS", 14)

	v.SetDefault("ADMIN_ENABLED", true)
	v.SetDefault("ADMIN_TITLE", "Admin")
	v.SetDefault("ADMIN_PREFIX", "/admin")
	v.SetDefault("ADMIN_SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("ADMIN_SESSION_COOKIE", "admin_session")
	v.SetDefault("ADMIN_SESSION_TTL", "24h")
	v.SetDefault("ADMIN_SESSION_STORE", BackendMemory)
	v.SetDefault("ADMIN_AUTH", AuthStatic)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")
	v.SetDefault("ADMIN_STORAGE", BackendMemory)
	v.SetDefault("ADMIN_RESOURCES_FILE", "")
	v.SetDefault("ADMIN_PAGE_SIZE", 25)

	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_BUFFER_SIZE", 64)
	v.SetDefault("AUDIT_MAX_RETRIES", 3)

	v.SetDefault("TOKEN_PURGE_SCHEDULE", "@every 1h")
}

// isMissingFile reports an absent .env; with SetConfigFile viper surfaces the
// raw filesystem error instead of ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
