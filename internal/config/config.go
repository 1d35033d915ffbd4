package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	APIKey     string
	BaseURL    string
	OutputDir  string
	Production bool
	Port       string
	LogLevel   string

	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3PublicBaseURL   string
}

func Load() *Config {
	// Best effort; a missing .env file is fine.
	godotenv.Load(".env")

	return &Config{
		APIKey:     getEnv("LUMAGEN_API_KEY", ""),
		BaseURL:    getEnv("LUMAGEN_BASE_URL", "https://api.lumagen.dev/v1"),
		OutputDir:  getEnv("LUMAGEN_OUTPUT_DIR", "output"),
		Production: getEnvBool("LUMAGEN_PRODUCTION", false),
		Port:       getEnv("LUMAGEN_PORT", "8080"),
		LogLevel:   getEnv("LUMAGEN_LOG_LEVEL", "info"),

		S3Endpoint:        getEnv("LUMAGEN_S3_ENDPOINT", ""),
		S3Region:          getEnv("LUMAGEN_S3_REGION", "auto"),
		S3AccessKeyID:     getEnv("LUMAGEN_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("LUMAGEN_S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          getEnv("LUMAGEN_S3_BUCKET", ""),
		S3PublicBaseURL:   getEnv("LUMAGEN_S3_PUBLIC_BASE_URL", ""),
	}
}

// S3Enabled reports whether output mirroring to object storage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// RedactedAPIKey returns the key in xxx...<last4> form for diagnostics. The
// full key must never be logged.
func (c *Config) RedactedAPIKey() string {
	if c.APIKey == "" {
		return "(unset)"
	}
	if len(c.APIKey) <= 4 {
		return "xxx..."
	}
	return "xxx..." + c.APIKey[len(c.APIKey)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
