package config

import (
	"errors"
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

type Config struct {
	AppName         string
	Env             string
	Port            int
	APIPrefix       string
	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookies   CookieConfig
	SeedAdmin SeedAdminConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
	Metrics   MetricsConfig
	Janitor   JanitorConfig
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
	Issuer            string
	Audience          string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

// CookieConfig names the session cookies and their transport flags.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Secure      bool
	Domain      string
}

// SeedAdminConfig designates the single administrator reconciled at start-up.
type SeedAdminConfig struct {
	Email    string
	Password string
	Name     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs cache behaviour for attendance overviews.
type AnalyticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type MetricsConfig struct {
	Enabled bool
}

// JanitorConfig schedules the refresh token purge job.
type JanitorConfig struct {
	Interval  time.Duration
	Retention time.Duration
	Retries   int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.AppName = v.GetString("APP_NAME")
	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second)

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
		Issuer:            v.GetString("JWT_ISSUER"),
		Audience:          v.GetString("JWT_AUDIENCE"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 15*time.Minute),
		RefreshExpiration: parseDuration(v.GetString("JWT_REFRESH_EXPIRATION"), 14*24*time.Hour),
	}

	cfg.Cookies = CookieConfig{
		AccessName:  v.GetString("AUTH_ACCESS_COOKIE"),
		RefreshName: v.GetString("AUTH_REFRESH_COOKIE"),
		Secure:      v.GetBool("AUTH_COOKIE_SECURE"),
		Domain:      v.GetString("AUTH_COOKIE_DOMAIN"),
	}

	cfg.SeedAdmin = SeedAdminConfig{
		Email:    strings.TrimSpace(v.GetString("SEED_ADMIN_EMAIL")),
		Password: v.GetString("SEED_ADMIN_PASSWORD"),
		Name:     v.GetString("SEED_ADMIN_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheEnabled: v.GetBool("CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("METRICS_ENABLED")}

	cfg.Janitor = JanitorConfig{
		Interval:  parseDuration(v.GetString("TOKEN_JANITOR_INTERVAL"), 6*time.Hour),
		Retention: parseDuration(v.GetString("TOKEN_RETENTION"), 7*24*time.Hour),
		Retries:   v.GetInt("TOKEN_JANITOR_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ams-api")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "AttendanceManagementSystem")
	v.SetDefault("JWT_AUDIENCE", "AttendanceManagementSystem")
	v.SetDefault("JWT_EXPIRATION", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRATION", "336h")

	v.SetDefault("AUTH_ACCESS_COOKIE", "ams.access")
	v.SetDefault("AUTH_REFRESH_COOKIE", "ams.refresh")
	v.SetDefault("AUTH_COOKIE_SECURE", true)
	v.SetDefault("AUTH_COOKIE_DOMAIN", "")

	v.SetDefault("SEED_ADMIN_EMAIL", "admin@ams.local")
	v.SetDefault("SEED_ADMIN_PASSWORD", "Admin@12345")
	v.SetDefault("SEED_ADMIN_NAME", "System Admin")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("TOKEN_JANITOR_INTERVAL", "6h")
	v.SetDefault("TOKEN_RETENTION", "168h")
	v.SetDefault("TOKEN_JANITOR_RETRIES", 3)
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
