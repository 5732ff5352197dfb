package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oss-listings/claims-backend/internal/logging"
)

const (
	AuthModeFirebase = "firebase"
	AuthModeHeader   = "header"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Forge    ForgeConfig
	Uploads  UploadsConfig
	App      AppConfig
}

type ServerConfig struct {
	Port          string
	CORSOrigins   []string
	PublicBaseURL string // used to build OAuth callback URLs
	WebAppURL     string // where the browser lands after linking a forge account
}

type DatabaseConfig struct {
	DSN           string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
	AuthMode        string
}

type ForgeConfig struct {
	GitHubAPIURL       string
	GitLabAPIURL       string
	GitHubClientID     string
	GitHubClientSecret string
	GitLabClientID     string
	GitLabClientSecret string
	// Server-side tokens used for public repository metadata, never for ownership checks.
	GitHubAPIToken    string
	GitLabAPIToken    string
	Timeout           time.Duration
	RetryBackoff      time.Duration
	RequestsPerSecond int
	RepoCacheTTL      time.Duration
	RefreshSchedule   string
}

type UploadsConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	MaxBytes      int64
	URLTTL        time.Duration
}

type AppConfig struct {
	Environment            string
	LogLevel               string
	Version                string
	ClaimRequestsPerMinute int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			WebAppURL:     strings.TrimRight(getEnv("WEB_APP_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DB_DSN", ""),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 2),
			RunMigrations: getEnvAsBool("DB_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			AuthMode:        getEnv("AUTH_MODE", AuthModeFirebase),
		},
		Forge: ForgeConfig{
			GitHubAPIURL:       getEnv("GITHUB_API_URL", "https://api.github.com"),
			GitLabAPIURL:       getEnv("GITLAB_API_URL", "https://gitlab.com/api/v4"),
			GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			GitLabClientID:     getEnv("GITLAB_CLIENT_ID", ""),
			GitLabClientSecret: getEnv("GITLAB_CLIENT_SECRET", ""),
			GitHubAPIToken:     getEnv("GITHUB_API_TOKEN", ""),
			GitLabAPIToken:     getEnv("GITLAB_API_TOKEN", ""),
			Timeout:            getEnvAsDuration("FORGE_TIMEOUT", 10*time.Second),
			RetryBackoff:       getEnvAsDuration("FORGE_RETRY_BACKOFF", 250*time.Millisecond),
			RequestsPerSecond:  getEnvAsInt("FORGE_REQUESTS_PER_SECOND", 10),
			RepoCacheTTL:       getEnvAsDuration("REPO_CACHE_TTL", 24*time.Hour),
			RefreshSchedule:    getEnv("REPO_REFRESH_SCHEDULE", "0 0 3 * * *"),
		},
		Uploads: UploadsConfig{
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			PublicBaseURL: strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
			MaxBytes:      int64(getEnvAsInt("UPLOAD_MAX_BYTES", 4<<20)),
			URLTTL:        getEnvAsDuration("UPLOAD_URL_TTL", 15*time.Minute),
		},
		App: AppConfig{
			Environment:            getEnv("APP_ENV", "development"),
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			Version:                getEnv("APP_VERSION", "1.0.0"),
			ClaimRequestsPerMinute: getEnvAsInt("CLAIM_REQUESTS_PER_MINUTE", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	switch c.Firebase.AuthMode {
	case AuthModeFirebase:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=%s", AuthModeFirebase)
		}
	case AuthModeHeader:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=%s is not allowed in production", AuthModeHeader)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Firebase.AuthMode)
	}

	if c.Forge.Timeout <= 0 {
		return fmt.Errorf("FORGE_TIMEOUT must be positive")
	}

	if _, err := logging.ParseLevel(c.App.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
