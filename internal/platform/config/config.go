package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvProduction = "production"

type Config struct {
	APIPort string
	AppEnv  string

	JWTKey     []byte
	JWTExp     time.Duration
	SessionTTL time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	// RedisAddr is optional. When empty the rate limiter runs in-process and the
	// janitor runs without a distributed lock.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitMax    int
	RateLimitWindow time.Duration
	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	MaxImageBytes   int64

	FrontendURL        string
	CORSAllowedOrigins []string
	ResetTokenTTL      time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	AWSBucketName      string
	AWSBucketRegion    string
	AWSAccessKey       string
	AWSSecretAccessKey string
	AWSEndpoint        string

	LogLevel string
	LogJSON  bool

	JanitorInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// loader resolves a key from the process environment first, then from the
// optional YAML file, then falls back to the supplied default.
type loader struct {
	file map[string]string
}

// Load reads .env (if present), the optional YAML file at path and the
// environment, and returns the resulting configuration.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	l := &loader{file: map[string]string{}}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &l.file); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIPort:    l.getEnv("API_PORT", "5000"),
		AppEnv:     l.getEnv("APP_ENV", "development"),
		JWTKey:     []byte(l.getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:     time.Duration(l.getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		SessionTTL: time.Duration(l.getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		DBHost:     l.getEnv("DB_HOST", "localhost"),
		DBPort:     l.getEnv("DB_PORT", "5432"),
		DBUser:     l.getEnv("DB_USER", "user"),
		DBPassword: l.getEnv("DB_PASSWORD", "password"),
		DBName:     l.getEnv("DB_NAME", "devbook"),
		DBSslMode:  l.getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     l.getEnv("REDIS_ADDR", ""),
		RedisPassword: l.getEnv("REDIS_PASSWORD", ""),
		RedisDB:       l.getEnvAsInt("REDIS_DB", 0),

		RateLimitMax:    l.getEnvAsInt("RATE_LIMIT_MAX", 2000),
		RateLimitWindow: time.Duration(l.getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 60)) * time.Minute,
		RequestTimeout:  time.Duration(l.getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxBodyBytes:    int64(l.getEnvAsInt("MAX_BODY_BYTES", 10*1024)),
		MaxImageBytes:   int64(l.getEnvAsInt("MAX_IMAGE_BYTES", 5*1024*1024)),

		FrontendURL:        l.getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSAllowedOrigins: splitList(l.getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ResetTokenTTL:      time.Duration(l.getEnvAsInt("RESET_TOKEN_TTL_MINUTES", 10)) * time.Minute,

		SMTPHost:     l.getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     l.getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: l.getEnv("EMAIL_USERNAME", ""),
		SMTPPassword: l.getEnv("EMAIL_PASSWORD", ""),
		EmailFrom:    l.getEnv("EMAIL_FROM", "no-reply@devbook.dev"),

		AWSBucketName:      l.getEnv("AWS_BUCKET_NAME", "s3-devbook"),
		AWSBucketRegion:    l.getEnv("AWS_BUCKET_REGION", "us-east-1"),
		AWSAccessKey:       l.getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretAccessKey: l.getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        l.getEnv("AWS_ENDPOINT", ""),

		LogLevel: l.getEnv("LOG_LEVEL", "info"),
		LogJSON:  l.getEnvAsBool("LOG_JSON", false),

		JanitorInterval: time.Duration(l.getEnvAsInt("JANITOR_INTERVAL_MINUTES", 60)) * time.Minute,
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if cfg.IsProduction() && string(cfg.JWTKey) == "defaultsecret" {
		return nil, fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return cfg, nil
}

func (l *loader) getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := l.file[key]; exists {
		return value
	}
	return fallback
}

func (l *loader) getEnvAsInt(key string, fallback int) int {
	valueStr := l.getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func (l *loader) getEnvAsBool(key string, fallback bool) bool {
	valueStr := l.getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
