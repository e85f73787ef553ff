package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port       int
	LogLevel   string
	AppVersion string

	// Database (MySQL DSN). Empty means the in-memory store is used.
	DBDSN string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret      string
	JWTTTL         time.Duration
	LoginRateLimit int // login attempts per minute per client IP

	// Demo mode
	DemoAuth bool // DEMO_AUTH=true accepts the fixed demo credentials

	// Bootstrap accounts. The in-memory store seeds both; a database only
	// gets the admin, and only when AdminPassword is set.
	AdminEmail      string
	AdminPassword   string
	CompanyPassword string

	// Frontend
	CORSOrigins []string
	ViewsDir    string // serve view fragments from disk (watched) instead of the embedded copy
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:       getEnvInt("PORT", 3000),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),

		DBDSN: getEnv("DB_DSN", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:      getEnv("JWT_SECRET", "agendai-default-dev-secret-change-me"),
		JWTTTL:         getEnvDuration("JWT_TTL", 24*time.Hour),
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),

		DemoAuth: getEnvBool("DEMO_AUTH", false),

		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@agendai.com"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		CompanyPassword: getEnv("COMPANY_PASSWORD", ""),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		ViewsDir:    getEnv("VIEWS_DIR", ""),
	}
}

// ShellConfig configures the terminal client that hosts the application shell.
type ShellConfig struct {
	APIURL        string
	LogLevel      string
	RedisAddr     string // secondary tier; empty keeps it in memory
	OfflineDir    string // badger directory for the offline tier; empty keeps it in memory
	SyncInterval  time.Duration
	SettleDelay   time.Duration
	HTTPTimeout   time.Duration
	HealthRetries int
	RetryBackoff  time.Duration
}

// LoadShell reads the shell configuration from environment variables.
func LoadShell() *ShellConfig {
	return &ShellConfig{
		APIURL:        getEnv("AGENDAI_API_URL", "http://localhost:3000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		OfflineDir:    getEnv("OFFLINE_DIR", ""),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SettleDelay:   getEnvDuration("SETTLE_DELAY", 100*time.Millisecond),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		HealthRetries: getEnvInt("HEALTH_RETRIES", 5),
		RetryBackoff:  getEnvDuration("INITIAL_BACKOFF", 500*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
