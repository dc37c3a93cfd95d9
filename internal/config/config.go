// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Session  SessionConfig
	Redis    RedisConfig
	Security SecurityConfig
	Business BusinessConfig
	Storage  StorageConfig
	Mail     MailConfig
	Jobs     JobsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `env:"PORT" env-default:"8080"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT" env-default:"15"`  // seconds
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" env-default:"15"` // seconds
	IdleTimeout  int    `env:"SERVER_IDLE_TIMEOUT" env-default:"60"`  // seconds
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" env-default:"postgres"` // postgres | sqlite
	Host        string `env:"DB_HOST" env-default:"localhost"`
	Port        int    `env:"DB_PORT" env-default:"5432"`
	User        string `env:"DB_USERNAME" env-default:"cna"`
	Password    string `env:"DB_PASSWORD" env-default:"cna"`
	DBName      string `env:"DB_DATABASE" env-default:"cna_billing"`
	SSLMode     string `env:"DB_SSLMODE" env-default:"disable"`
	URLOverride string `env:"DATABASE_URL"`
	SQLitePath  string `env:"DB_SQLITE_PATH" env-default:"storage/cna.db"`
	Debug       bool   `env:"DB_DEBUG" env-default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name               string   `env:"APP_NAME" env-default:"CNA Billing"`
	Env                string   `env:"APP_ENV" env-default:"local"`
	Debug              bool     `env:"APP_DEBUG" env-default:"false"`
	URL                string   `env:"APP_URL" env-default:"http://localhost:8080"`
	Timezone           string   `env:"APP_TIMEZONE" env-default:"America/New_York"`
	Key                string   `env:"APP_KEY" env-default:"dev-app-key-change-me"`
	Migrations         bool     `env:"MIGRATIONS" env-default:"false"`
	DefaultLanguage    string   `env:"DEFAULT_LANGUAGE" env-default:"en"`
	SupportedLanguages []string `env:"SUPPORTED_LANGUAGES" env-separator:"," env-default:"en,es"`
	TemplatesDir       string   `env:"TEMPLATES_DIR"`
	AdminEmail         string   `env:"ADMIN_EMAIL"`
	AdminPassword      string   `env:"ADMIN_PASSWORD"`
}

// SessionConfig holds session cookie and storage settings.
type SessionConfig struct {
	Driver   string `env:"SESSION_DRIVER" env-default:"memory"` // memory | redis
	Lifetime int    `env:"SESSION_LIFETIME" env-default:"120"`  // minutes
	Secure   bool   `env:"SESSION_SECURE" env-default:"false"`
	HTTPOnly bool   `env:"SESSION_HTTP_ONLY" env-default:"true"`
	SameSite string `env:"SESSION_SAME_SITE" env-default:"strict"`
}

// RedisConfig holds the session store connection.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// SecurityConfig holds rate limit and hashing settings.
type SecurityConfig struct {
	RateLimitRequests int    `env:"RATE_LIMIT_REQUESTS" env-default:"5"`
	RateLimitMinutes  int    `env:"RATE_LIMIT_MINUTES" env-default:"15"`
	ArgonMemory       uint32 `env:"ARGON_MEMORY" env-default:"65536"` // KiB
	ArgonTime         uint32 `env:"ARGON_TIME" env-default:"4"`
	ArgonThreads      uint8  `env:"ARGON_THREADS" env-default:"3"`
	AuditLogPath      string `env:"SECURITY_LOG" env-default:"storage/logs/security.log"`
	ThrottlePerMinute int    `env:"THROTTLE_PER_MINUTE" env-default:"30"`
}

// BusinessConfig holds company details printed on documents and the default tax rate.
type BusinessConfig struct {
	Name    string  `env:"BUSINESS_NAME" env-default:"CNA Upholstery"`
	Email   string  `env:"BUSINESS_EMAIL"`
	Phone   string  `env:"BUSINESS_PHONE"`
	Address string  `env:"BUSINESS_ADDRESS"`
	TaxRate float64 `env:"TAX_RATE" env-default:"6.625"`
}

// StorageConfig holds S3-compatible object storage settings.
type StorageConfig struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_DEFAULT_REGION" env-default:"us-east-1"`
	Bucket          string `env:"AWS_BUCKET"`
	URL             string `env:"AWS_URL"`
	Endpoint        string `env:"AWS_ENDPOINT"`
	MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" env-default:"10485760"`
}

// MailConfig is read for completeness; outgoing mail is not sent by this service.
type MailConfig struct {
	Host        string `env:"MAIL_HOST"`
	Port        int    `env:"MAIL_PORT" env-default:"587"`
	Username    string `env:"MAIL_USERNAME"`
	Password    string `env:"MAIL_PASSWORD"`
	FromAddress string `env:"MAIL_FROM_ADDRESS"`
	FromName    string `env:"MAIL_FROM_NAME"`
}

// JobsConfig holds background job schedules.
type JobsConfig struct {
	OverdueSchedule string `env:"OVERDUE_SCHEDULE" env-default:"@hourly"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.URLOverride != "" {
		return d.URLOverride
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
// golang-migrate only understands this form.
func (d DatabaseConfig) URL() string {
	if d.URLOverride != "" {
		return d.URLOverride
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Location resolves APP_TIMEZONE, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LifetimeDuration returns the session lifetime.
func (s SessionConfig) LifetimeDuration() time.Duration {
	return time.Duration(s.Lifetime) * time.Minute
}

// SameSiteMode maps SESSION_SAME_SITE onto the http constant.
func (s SessionConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(s.SameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// RateLimitWindow returns the login rate-limit window.
func (s SecurityConfig) RateLimitWindow() time.Duration {
	return time.Duration(s.RateLimitMinutes) * time.Minute
}

// Enabled reports whether object storage has enough settings to be used.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// DevAppKey is the APP_KEY default. It is refused in production.
const DevAppKey = "dev-app-key-change-me"

// ErrInsecureAppKey is returned by Load in production when APP_KEY is unset or the default.
var ErrInsecureAppKey = errors.New("APP_KEY must be set to a secret value in production")

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.App.IsProduction() && (strings.TrimSpace(cfg.App.Key) == "" || cfg.App.Key == DevAppKey) {
		return nil, fmt.Errorf("config.Load: %w", ErrInsecureAppKey)
	}
	return &cfg, nil
}

