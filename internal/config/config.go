// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`
	DBSource          string        `mapstructure:"DB_SOURCE"`

	// Logging Configuration
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	LogOutputPath string `mapstructure:"LOG_OUTPUT_PATH"`

	// JWT
	JWTSecretKey                string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer                   string `mapstructure:"JWT_ISSUER"`
	JWTAccessTokenExpiryMinutes int    `mapstructure:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
	JWTRefreshTokenExpiryDays   int    `mapstructure:"JWT_REFRESH_TOKEN_EXPIRY_DAYS"`

	// Redis (optional; empty address disables caching and rate limiting)
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`
	LocationCacheTTL   time.Duration `mapstructure:"LOCATION_CACHE_TTL_SECONDS"`
	LoginRatePerSecond float64       `mapstructure:"LOGIN_RATE_PER_SECOND"`
	LoginRateBurst     int           `mapstructure:"LOGIN_RATE_BURST"`

	// Elasticsearch Configuration
	ElasticsearchURL  string `mapstructure:"ELASTICSEARCH_URL"`
	CustomerIndexName string `mapstructure:"CUSTOMER_INDEX_NAME"`

	// File storage for CSV uploads and export archives
	ExportStorage   string `mapstructure:"EXPORT_STORAGE"`
	ExportLocalPath string `mapstructure:"EXPORT_LOCAL_PATH"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3Prefix        string `mapstructure:"S3_PREFIX"`
	CSVMaxUploadMB  int64  `mapstructure:"CSV_MAX_UPLOAD_MB"`

	// Workflow
	ApprovalExpiryDays int `mapstructure:"APPROVAL_EXPIRY_DAYS"`
	AuditRetentionDays int `mapstructure:"AUDIT_RETENTION_DAYS"`

	// Cron Jobs
	ApprovalExpiryJobSchedule string `mapstructure:"APPROVAL_EXPIRY_JOB_SCHEDULE"`
	AuditRetentionJobSchedule string `mapstructure:"AUDIT_RETENTION_JOB_SCHEDULE"`

	// Tracing
	OTELServiceName      string `mapstructure:"OTEL_SERVICE_NAME"`
	OTELExporterEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Initial super admin used by the seed-admin command
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string `mapstructure:"SEED_ADMIN_NAME"`
}

// IsRelease reports whether the server runs in gin release mode.
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.LocationCacheTTL = time.Duration(v.GetInt("LOCATION_CACHE_TTL_SECONDS")) * time.Second

	// AutomaticEnv hands back comma separated lists as a single string.
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBSource == "" && cfg.DBDriver == "postgres" {
		cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "wasa_admin_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SQLITE_PATH", "wasa_admin.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_SOURCE", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ISSUER", "wasa-admin")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 7)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCATION_CACHE_TTL_SECONDS", 300)
	v.SetDefault("LOGIN_RATE_PER_SECOND", 0.2)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("CUSTOMER_INDEX_NAME", "customers")

	v.SetDefault("EXPORT_STORAGE", "local")
	v.SetDefault("EXPORT_LOCAL_PATH", "./storage")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "wasa-admin")
	v.SetDefault("CSV_MAX_UPLOAD_MB", 20)

	v.SetDefault("APPROVAL_EXPIRY_DAYS", 14)
	v.SetDefault("AUDIT_RETENTION_DAYS", 365)
	v.SetDefault("APPROVAL_EXPIRY_JOB_SCHEDULE", "@hourly")
	v.SetDefault("AUDIT_RETENTION_JOB_SCHEDULE", "@daily")

	v.SetDefault("OTEL_SERVICE_NAME", "wasa-admin-backend")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)

	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_NAME", "Super Admin")
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected postgres or sqlite)", c.DBDriver)
	}
	switch c.ExportStorage {
	case "local":
	case "s3":
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("S3_BUCKET is required when EXPORT_STORAGE=s3")
		}
	default:
		return fmt.Errorf("unsupported EXPORT_STORAGE %q (expected local or s3)", c.ExportStorage)
	}
	if c.IsRelease() && strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("FATAL: JWT_SECRET_KEY is not set. This is required in release mode")
	}
	if c.JWTSecretKey == "" {
		c.JWTSecretKey = "insecure-development-secret"
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
