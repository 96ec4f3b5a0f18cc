package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Scheduling pipeline
	DefaultTimezone string
	RequestTimeout  time.Duration

	// OCR sidecar
	OCRBaseURL string
	OCRTimeout time.Duration
	OCRMaxSize int64

	// IP geolocation
	GeoIPBaseURL  string
	GeoIPTimeout  time.Duration
	GeoIPCacheTTL time.Duration

	// AI validation
	AIProvider          string
	AIValidationTimeout time.Duration
	GeminiAPIKey        string
	GeminiModelID       string
	BedrockModelID      string

	// AWS (Bedrock validator)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis (geoip cache)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Postgres (request audit log)
	DatabaseURL string

	// Admin endpoints
	AdminJWTSecret string

	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),

		OCRBaseURL: getEnv("OCR_BASE_URL", ""),
		OCRTimeout: getEnvAsDuration("OCR_TIMEOUT", 20*time.Second),
		OCRMaxSize: int64(getEnvAsInt("OCR_MAX_UPLOAD_BYTES", 10<<20)),

		GeoIPBaseURL:  getEnv("GEOIP_BASE_URL", ""),
		GeoIPTimeout:  getEnvAsDuration("GEOIP_TIMEOUT", 3*time.Second),
		GeoIPCacheTTL: getEnvAsDuration("GEOIP_CACHE_TTL", 24*time.Hour),

		AIProvider:          strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "auto"))),
		AIValidationTimeout: getEnvAsDuration("AI_VALIDATION_TIMEOUT", 10*time.Second),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
