package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every field maps to one
// environment variable.
type Config struct {
	// Server
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"` // development | production
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Storage: postgres | memory
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBPort      int    `mapstructure:"DB_PORT"`

	// Notifications are only published when REDIS_URL is set.
	RedisURL      string `mapstructure:"REDIS_URL"`
	NotifyChannel string `mapstructure:"NOTIFY_CHANNEL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	AdminUsername      string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword      string `mapstructure:"ADMIN_PASSWORD"`

	// HTTP limits
	AllowedOrigins         string `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitMax           int    `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindowSeconds int    `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
	BodyLimitMB            int    `mapstructure:"BODY_LIMIT_MB"`

	// Business
	InvoiceNumberPrefix string `mapstructure:"INVOICE_NUMBER_PREFIX"`
	PrintDelayMs        int    `mapstructure:"PRINT_DELAY_MS"`
	ReceiptName         string `mapstructure:"RECEIPT_NAME"`
	ReceiptLines        string `mapstructure:"RECEIPT_LINES"` // separated by "|"
}

var keys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL",
	"STORE_DRIVER", "DATABASE_URL", "DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT",
	"REDIS_URL", "NOTIFY_CHANNEL",
	"JWT_SECRET", "JWT_EXPIRATION_HOURS", "ADMIN_USERNAME", "ADMIN_PASSWORD",
	"ALLOWED_ORIGINS", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW_SECONDS", "BODY_LIMIT_MB",
	"INVOICE_NUMBER_PREFIX", "PRINT_DELAY_MS", "RECEIPT_NAME", "RECEIPT_LINES",
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; bind them all so values
	// without a default are picked up from the environment too.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("NOTIFY_CHANNEL", "pos:notifications")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_MAX", 60)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("BODY_LIMIT_MB", 4)
	v.SetDefault("INVOICE_NUMBER_PREFIX", "A")
	v.SetDefault("PRINT_DELAY_MS", 500)
	v.SetDefault("RECEIPT_NAME", "SUN TRADERS")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// DSN returns DATABASE_URL when set, otherwise a key/value DSN assembled from
// the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) ReceiptHeaderLines() []string {
	var lines []string
	for _, line := range strings.Split(c.ReceiptLines, "|") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
