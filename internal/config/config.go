package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Firebase  FirebaseConfig
	Storage   StorageConfig
	Uploads   UploadConfig
	Email     EmailConfig
	Bootstrap BootstrapConfig
	Sentry    SentryConfig
	Catalog   CatalogConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port                   string
	Env                    string
	LogLevel               string
	LogFormat              string
	AllowedOrigins         []string
	TrustedProxies         []string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	AuthRateLimitPerMinute int
}

type FirebaseConfig struct {
	ProjectID       string
	JWKSURL         string
	RefreshInterval time.Duration
}

// Issuer is the token issuer Firebase uses for the project.
func (c *FirebaseConfig) Issuer() string {
	return "https://securetoken.google.com/" + c.ProjectID
}

type StorageConfig struct {
	Driver          string // "s3" or "local"
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	LocalPath       string
}

type UploadConfig struct {
	MaxPictureBytes     int64
	MaxFileBytes        int64
	PictureMaxDimension int
	MaxPicturePixels    int64
}

type EmailConfig struct {
	Enabled     bool
	Region      string
	FromAddress string
	AppURL      string
}

type BootstrapConfig struct {
	SuperAdminEmail string
	SuperAdminName  string
}

type SentryConfig struct {
	DSN              string
	TracesSampleRate float64
}

type CatalogConfig struct {
	PurgeAfter    time.Duration
	PurgeInterval time.Duration
}

const defaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "labsy"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8080"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			LogFormat:              getEnv("LOG_FORMAT", "json"),
			AllowedOrigins:         parseAllowedOrigins(env),
			TrustedProxies:         getEnvAsSlice("TRUSTED_PROXIES", nil),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AuthRateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			JWKSURL:         getEnv("FIREBASE_JWKS_URL", defaultJWKSURL),
			RefreshInterval: getEnvAsDuration("FIREBASE_JWKS_REFRESH", 1*time.Hour),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			Bucket:          getEnv("STORAGE_BUCKET", ""),
			Region:          getEnv("STORAGE_REGION", "me-south-1"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
			LocalPath:       getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		},
		Uploads: UploadConfig{
			MaxPictureBytes:     getEnvAsInt64("UPLOAD_MAX_PICTURE_BYTES", 10<<20),
			MaxFileBytes:        getEnvAsInt64("UPLOAD_MAX_FILE_BYTES", 10<<20),
			PictureMaxDimension: getEnvAsInt("UPLOAD_PICTURE_MAX_DIMENSION", 512),
			MaxPicturePixels:    getEnvAsInt64("UPLOAD_MAX_PICTURE_PIXELS", 40_000_000),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			Region:      getEnv("EMAIL_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM", "no-reply@labsy.app"),
			AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		},
		Bootstrap: BootstrapConfig{
			SuperAdminEmail: strings.TrimSpace(getEnv("SUPER_ADMIN_EMAIL", "")),
			SuperAdminName:  getEnv("SUPER_ADMIN_NAME", "Super Admin"),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0),
		},
		Catalog: CatalogConfig{
			PurgeAfter:    getEnvAsDuration("CATALOG_PURGE_AFTER", 0),
			PurgeInterval: getEnvAsDuration("CATALOG_PURGE_INTERVAL", 24*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required when STORAGE_DRIVER is s3")
		}
	case "local":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of s3, local (got %q)", c.Storage.Driver)
	}

	if c.Server.AuthRateLimitPerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.Catalog.PurgeAfter > 0 && c.Catalog.PurgeInterval <= 0 {
		return fmt.Errorf("CATALOG_PURGE_INTERVAL must be positive when CATALOG_PURGE_AFTER is set")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsSlice splits a comma separated value, dropping empty entries.
func getEnvAsSlice(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsSlice("ALLOWED_ORIGINS", []string{})
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
