package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mmanyinorie/internal/validation"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	AppBaseURL      string
	SessionDuration time.Duration
	Debug           bool
	LogLevel        string

	// Database
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	// Email
	EmailProvider string // ses, smtp or none
	AWSRegion     string
	FromEmail     string
	FromName      string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string

	// Uploads
	UploadDir     string
	UploadMaxSize int64

	// Secrets
	TokenSecret string
	CSRFSecret  string

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	InvitationTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		AppBaseURL:      strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),
		Debug:           getEnvBool("DEBUG", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./mmanyinorie.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		EmailProvider: strings.ToLower(getEnv("EMAIL_PROVIDER", "none")),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		FromEmail:     getEnv("SES_FROM_EMAIL", ""),
		FromName:      getEnv("SES_FROM_NAME", "Mmanyin Orie"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		UploadMaxSize: int64(getEnvInt("UPLOAD_MAX_SIZE", 5*1024*1024)),

		TokenSecret: getEnv("TOKEN_SECRET", ""),
		CSRFSecret:  getEnv("CSRF_SECRET", ""),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),

		InvitationTTL: getEnvDuration("INVITATION_TTL", 7*24*time.Hour),
	}
}

// Validate returns an error listing every invalid setting
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.ServerPort); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.ServerPort))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
		if c.DatabasePath == "" {
			problems = append(problems, "DB_PATH cannot be empty when using sqlite")
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			problems = append(problems, fmt.Sprintf("DATABASE_URL is required for database type %s", c.DatabaseType))
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported database type '%s'", c.DatabaseType))
	}

	if u, err := url.Parse(c.AppBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid APP_BASE_URL '%s'", c.AppBaseURL))
	}

	switch c.EmailProvider {
	case "none", "":
	case "ses", "smtp":
		if err := validation.ValidateEmail(c.FromEmail); err != nil {
			problems = append(problems, fmt.Sprintf("invalid SES_FROM_EMAIL '%s': %v", c.FromEmail, err))
		}
		if c.EmailProvider == "smtp" && c.SMTPHost == "" {
			problems = append(problems, "SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid EMAIL_PROVIDER '%s': must be ses, smtp or none", c.EmailProvider))
	}

	if len(c.TokenSecret) < 16 {
		problems = append(problems, "TOKEN_SECRET must be at least 16 characters")
	}
	if len(c.CSRFSecret) < 16 {
		problems = append(problems, "CSRF_SECRET must be at least 16 characters")
	}
	if c.UploadMaxSize <= 0 {
		problems = append(problems, "UPLOAD_MAX_SIZE must be positive")
	}
	if c.SessionDuration <= 0 {
		problems = append(problems, "SESSION_DURATION must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// GoogleOAuthEnabled reports whether Google sign-in is configured
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
