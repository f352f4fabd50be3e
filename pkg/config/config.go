package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	App          AppConfig
	Locale       LocaleConfig
	OAuth        OAuthConfig
	SMTP         SMTPConfig
	Housekeeping HousekeepingConfig
	Export       ExportConfig
}

type ServerConfig struct {
	Host              string
	Port              int
	Env               string
	AllowedOrigins    []string
	// WorkerMetricsAddr is where the worker exposes /metrics. Empty disables it.
	WorkerMetricsAddr string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// AppConfig holds product-level settings that show up in links and defaults.
type AppConfig struct {
	Name                 string
	BaseURL              string
	DefaultWorkspaceName string
}

type LocaleConfig struct {
	Default   string
	Supported []string
}

// OAuthConfig configures the external identity provider used by /auth/callback.
// The flow is disabled when ClientID is empty.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type HousekeepingConfig struct {
	Cron                 string
	InvitationRetainDays int
}

// ExportConfig points chart exports at an S3 compatible bucket.
type ExportConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	AssumeRoleARN   string
	// AgeRecipient, when set, seals every export with age before upload.
	AgeRecipient string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (o *OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.AuthURL != "" && o.TokenURL != ""
}

func (e *ExportConfig) Enabled() bool {
	return e.Bucket != ""
}

func (h *HousekeepingConfig) Retention() time.Duration {
	return time.Duration(h.InvitationRetainDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("WORKER_METRICS_ADDR", ":9091")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "zenshin")
	v.SetDefault("DATABASE_PASSWORD", "zenshin_secret")
	v.SetDefault("DATABASE_NAME", "zenshin")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24*7)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("APP_NAME", "ZENSHIN CHART")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("APP_DEFAULT_WORKSPACE_NAME", "My Workspace")
	v.SetDefault("LOCALE_DEFAULT", "ja")
	v.SetDefault("LOCALE_SUPPORTED", "ja,en")
	v.SetDefault("OAUTH_SCOPES", "openid,email,profile")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_FROM_NAME", "ZENSHIN CHART")
	v.SetDefault("HOUSEKEEPING_CRON", "0 3 * * *")
	v.SetDefault("HOUSEKEEPING_INVITATION_RETAIN_DAYS", 30)
	v.SetDefault("EXPORT_REGION", "us-east-1")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:              v.GetString("SERVER_HOST"),
			Port:              v.GetInt("SERVER_PORT"),
			Env:               v.GetString("SERVER_ENV"),
			AllowedOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			WorkerMetricsAddr: v.GetString("WORKER_METRICS_ADDR"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		App: AppConfig{
			Name:                 v.GetString("APP_NAME"),
			BaseURL:              strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
			DefaultWorkspaceName: v.GetString("APP_DEFAULT_WORKSPACE_NAME"),
		},
		Locale: LocaleConfig{
			Default:   v.GetString("LOCALE_DEFAULT"),
			Supported: splitList(v.GetString("LOCALE_SUPPORTED")),
		},
		OAuth: OAuthConfig{
			ClientID:     v.GetString("OAUTH_CLIENT_ID"),
			ClientSecret: v.GetString("OAUTH_CLIENT_SECRET"),
			AuthURL:      v.GetString("OAUTH_AUTH_URL"),
			TokenURL:     v.GetString("OAUTH_TOKEN_URL"),
			UserInfoURL:  v.GetString("OAUTH_USERINFO_URL"),
			RedirectURL:  v.GetString("OAUTH_REDIRECT_URL"),
			Scopes:       splitList(v.GetString("OAUTH_SCOPES")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("SMTP_FROM_NAME"),
		},
		Housekeeping: HousekeepingConfig{
			Cron:                 v.GetString("HOUSEKEEPING_CRON"),
			InvitationRetainDays: v.GetInt("HOUSEKEEPING_INVITATION_RETAIN_DAYS"),
		},
		Export: ExportConfig{
			Bucket:          v.GetString("EXPORT_BUCKET"),
			Region:          v.GetString("EXPORT_REGION"),
			Endpoint:        v.GetString("EXPORT_ENDPOINT"),
			AccessKeyID:     v.GetString("EXPORT_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("EXPORT_SECRET_ACCESS_KEY"),
			AssumeRoleARN:   v.GetString("EXPORT_ASSUME_ROLE_ARN"),
			AgeRecipient:    v.GetString("EXPORT_AGE_RECIPIENT"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
