package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	// StoreDriver "memory" is for development and tests: it is not durable and
	// a rolled back transaction also discards writes made concurrently.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RedisURL  string        `mapstructure:"REDIS_URL"`
	MemoryTTL time.Duration `mapstructure:"MEMORY_TTL"`

	GoogleAPIKey         string        `mapstructure:"GOOGLE_API_KEY"`
	LLMModel             string        `mapstructure:"LLM_MODEL"`
	LLMBaseURL           string        `mapstructure:"LLM_BASE_URL"`
	LLMTimeout           time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMRetryAttempts     int           `mapstructure:"LLM_RETRY_ATTEMPTS"`
	LLMRetryInitialDelay time.Duration `mapstructure:"LLM_RETRY_INITIAL_DELAY"`
	LLMRetryExpBase      float64       `mapstructure:"LLM_RETRY_EXP_BASE"`
	LLMRetryMaxDelay     time.Duration `mapstructure:"LLM_RETRY_MAX_DELAY"`
	AgentMaxSteps        int           `mapstructure:"AGENT_MAX_STEPS"`

	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTL   time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	BcryptCost     int           `mapstructure:"BCRYPT_COST"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "MEMORY_TTL",
	"GOOGLE_API_KEY", "LLM_MODEL", "LLM_BASE_URL", "LLM_TIMEOUT",
	"LLM_RETRY_ATTEMPTS", "LLM_RETRY_INITIAL_DELAY", "LLM_RETRY_EXP_BASE", "LLM_RETRY_MAX_DELAY",
	"AGENT_MAX_STEPS",
	"AUTH_SIGNING_KEY", "AUTH_TOKEN_TTL", "BCRYPT_COST",
	"CORS_ORIGINS", "LOG_FORMAT", "LOG_LEVEL", "REQUEST_TIMEOUT", "BODY_LIMIT",
}

// devSigningKey stands in for AUTH_SIGNING_KEY when ENV=development.
const devSigningKey = "healthline-development-signing-key-not-for-production"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MEMORY_TTL", "720h")
	v.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	v.SetDefault("LLM_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("LLM_TIMEOUT", "60s")
	v.SetDefault("LLM_RETRY_ATTEMPTS", 5)
	v.SetDefault("LLM_RETRY_INITIAL_DELAY", "1s")
	v.SetDefault("LLM_RETRY_EXP_BASE", 7)
	v.SetDefault("LLM_RETRY_MAX_DELAY", "60s")
	v.SetDefault("AGENT_MAX_STEPS", 10)
	v.SetDefault("AUTH_TOKEN_TTL", "12h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8501")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "120s")
	v.SetDefault("BODY_LIMIT", "1M")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedLogFormat defaults to console output in development and JSON
// elsewhere.
func (c *Config) ResolvedLogFormat() string {
	if c.LogFormat != "" {
		return strings.ToLower(c.LogFormat)
	}
	if c.IsDev() {
		return "console"
	}
	return "json"
}

// SigningKey returns the HMAC key for session tokens. Development falls back
// to a fixed key so that login works out of the box.
func (c *Config) SigningKey() []byte {
	if c.AuthSigningKey == "" && c.IsDev() {
		return []byte(devSigningKey)
	}
	return []byte(c.AuthSigningKey)
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is \"postgres\"")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be \"postgres\" or \"memory\", got %q", c.StoreDriver)
	}

	if !c.IsDev() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required outside development (current ENV=%q)", c.Env)
		}
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
		}
	}

	switch c.ResolvedLogFormat() {
	case "console", "json", "ecs":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"console\", \"json\" or \"ecs\", got %q", c.LogFormat)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.LLMRetryAttempts < 1 {
		return fmt.Errorf("LLM_RETRY_ATTEMPTS must be at least 1, got %d", c.LLMRetryAttempts)
	}
	if c.LLMRetryExpBase < 1 {
		return fmt.Errorf("LLM_RETRY_EXP_BASE must be at least 1, got %v", c.LLMRetryExpBase)
	}
	if c.AgentMaxSteps < 1 {
		return fmt.Errorf("AGENT_MAX_STEPS must be at least 1, got %d", c.AgentMaxSteps)
	}
	return nil
}
