package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string // postgres or sqlite
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		Path     string // sqlite file, ":memory:" allowed
		MaxConns int
		Retries  int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret      string
		ExpiryHours time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Generation holds the text generation client and retry settings
	Generation struct {
		Model           string
		APIKeyName      string
		Temperature     float64
		TopP            float64
		TopK            float64
		MaxOutputTokens int
		MaxAttempts     int
		BackoffBase     time.Duration
		BackoffMax      time.Duration
		CallTimeout     time.Duration
		BreakerEnabled  bool
		BreakerTimeout  time.Duration
	}

	// Credits configuration
	Credits struct {
		TurnCost      int
		InitialGrant  int
		MaxMessageLen int
	}

	// Recommendation tuning
	Recommendation struct {
		DefaultLimit     int
		KeywordCacheTTL  time.Duration
		KeywordCacheSize int
	}

	// Lock selects how concurrent turns on one conversation are serialised
	Lock struct {
		Backend string // memory or redis
		TTL     time.Duration
		Wait    time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Vault holds the secrets backend settings
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		Mount       string
		SecretsPath string
	}

	Observability struct {
		ServiceName    string
		TracingEnabled bool
	}

	OpenAPI struct {
		SchemaPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load reads a fresh Config from the environment without touching the singleton.
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9094")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "emotion-characters")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.Path = getEnvString("DB_PATH", "emotion-characters.db")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Retries = getEnvInt("DB_CONNECT_RETRIES", 5)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20)

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Generation config
	cfg.Generation.Model = getEnvString("GEMINI_MODEL", "gemini-1.5-flash")
	cfg.Generation.APIKeyName = getEnvString("GEMINI_API_KEY_NAME", "GEMINI_API_KEY")
	cfg.Generation.Temperature = getEnvFloat("GEMINI_TEMPERATURE", 0.9)
	cfg.Generation.TopP = getEnvFloat("GEMINI_TOP_P", 0.95)
	cfg.Generation.TopK = getEnvFloat("GEMINI_TOP_K", 40)
	cfg.Generation.MaxOutputTokens = outputTokenLimit(getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 800))
	cfg.Generation.MaxAttempts = getEnvInt("GENERATION_MAX_ATTEMPTS", 3)
	cfg.Generation.BackoffBase = getEnvDuration("GENERATION_BACKOFF_BASE", 200*time.Millisecond)
	cfg.Generation.BackoffMax = getEnvDuration("GENERATION_BACKOFF_MAX", 2*time.Second)
	cfg.Generation.CallTimeout = getEnvDuration("GENERATION_CALL_TIMEOUT", 30*time.Second)
	cfg.Generation.BreakerEnabled = getEnvBool("GENERATION_BREAKER_ENABLED", true)
	cfg.Generation.BreakerTimeout = getEnvDuration("GENERATION_BREAKER_TIMEOUT", time.Minute)

	// Credits config
	cfg.Credits.TurnCost = getEnvInt("CREDIT_TURN_COST", 1)
	cfg.Credits.InitialGrant = getEnvInt("CREDIT_INITIAL_GRANT", 30)
	cfg.Credits.MaxMessageLen = getEnvInt("MAX_MESSAGE_LENGTH", 1000)

	// Recommendation config
	cfg.Recommendation.DefaultLimit = getEnvInt("RECOMMENDATION_LIMIT", 10)
	cfg.Recommendation.KeywordCacheTTL = getEnvDuration("KEYWORD_CACHE_TTL", 10*time.Minute)
	cfg.Recommendation.KeywordCacheSize = getEnvInt("KEYWORD_CACHE_SIZE", 256)

	// Lock config
	cfg.Lock.Backend = getEnvString("LOCK_BACKEND", "memory")
	cfg.Lock.TTL = getEnvDuration("LOCK_TTL", time.Minute)
	cfg.Lock.Wait = getEnvDuration("LOCK_WAIT", 10*time.Second)

	// Redis config
	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Vault config
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "emotion-character-app")

	cfg.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", "emotion-character-backend")
	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)

	cfg.OpenAPI.SchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")

	return cfg
}

// outputTokenLimit snaps n to a supported reply length: 1024 for anything
// above 800, otherwise 800.
func outputTokenLimit(n int) int {
	if n > 800 {
		return 1024
	}
	return 800
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
