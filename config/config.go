package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided
// via a .env file or the environment.
type AppConfig struct {
	AppPort string
	GinMode string

	// Session cookie
	JWTSecret         string
	SessionCookieName string
	SessionTTLHours   int
	CookieSecure      bool

	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for caching; empty host disables caching entirely
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// OAuth login
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string

	// Owner escalation recipient: the open id whose user row receives
	// threshold escalations and is promoted to admin on login.
	OwnerOpenID string
	OwnerEmail  string

	// Engagement
	EmpathyThreshold int

	// Uploads
	UploadDir     string
	UploadBaseURL string

	// SMTP for owner escalation mail (optional)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool

	// Logging
	LogLevel      string
	LogPath       string
	GinLogPath    string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Request layer
	RateLimitPerMinute int
	AllowedOrigins     []string
}

var cfg AppConfig
var loaded bool

// Load reads the configuration from the environment (and an optional .env
// file). It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Missing .env is fine; the environment alone is a complete source.
	_ = godotenv.Load()

	cfg = AppConfig{
		AppPort: getEnv("APP_PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "dongbo_session"),
		SessionTTLHours:   getEnvInt("SESSION_TTL_HOURS", 72),
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),

		DatabaseURI: os.Getenv("DATABASE_URI"),
		DBHost:      getEnv("DB_HOST", "127.0.0.1"),
		DBPort:      getEnv("DB_PORT", "3306"),
		DBUser:      getEnv("DB_USER", "dongbo"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getEnv("DB_NAME", "dongbo"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectBase:  getEnv("OAUTH_REDIRECT_BASE", "http://localhost:8080"),

		OwnerOpenID: os.Getenv("OWNER_OPEN_ID"),
		OwnerEmail:  os.Getenv("OWNER_EMAIL"),

		EmpathyThreshold: getEnvInt("EMPATHY_THRESHOLD", 50),

		UploadDir:     getEnv("UPLOAD_DIR", "./static/uploads"),
		UploadBaseURL: getEnv("UPLOAD_BASE_URL", "/static/uploads"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "dongbo"),
		SMTPTLS:      getEnvBool("SMTP_TLS", true),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
		GinLogPath:    getEnv("GIN_LOG_PATH", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:   getEnvBool("LOG_COMPRESS", false),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
