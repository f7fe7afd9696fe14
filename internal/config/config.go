// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.dbchat/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model selection, agent turn budget
//   - Database: SQL Server connection (see database.go)
//   - Sessions: in-memory store TTL and capacity bounds
//   - Serve: HTTP listen address, proxy trust, rate limiting
//   - Observability: optional OTLP trace export
//
// Security: the database password is never logged; MarshalJSON masks it.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingDatabaseConfig indicates one or more required database
	// environment values are absent.
	ErrMissingDatabaseConfig = errors.New("missing required database configuration")

	// ErrInvalidDatabasePort indicates the database port is out of range.
	ErrInvalidDatabasePort = errors.New("invalid database port")

	// ErrInvalidMaxTurns indicates the agent turn budget is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidMaxQueryRows indicates the guarded-query row cap is out of range.
	ErrInvalidMaxQueryRows = errors.New("invalid max query rows")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultDatabasePort is the default SQL Server TCP port.
	DefaultDatabasePort = 1433

	// DefaultMaxTurns bounds the agent loop per conversation turn.
	// The bound guarantees termination when the model keeps requesting tools.
	DefaultMaxTurns = 40

	// DefaultMaxQueryRows caps result sets returned by the guarded
	// free-form query tool. The table preview tool has its own fixed
	// 100-row cap; this keeps arbitrary SELECTs bounded as well.
	DefaultMaxQueryRows = 1000
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName string `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "gemini-2.5-flash", "llama3.3", "gpt-4o")
	MaxTurns  int    `mapstructure:"max_turns" json:"max_turns"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Database configuration (see database.go for the DSN builder)
	DatabaseUser     string `mapstructure:"db_user" json:"db_user"`
	DatabasePassword string `mapstructure:"db_password" json:"db_password"` // SENSITIVE: masked in MarshalJSON
	DatabaseServer   string `mapstructure:"db_server" json:"db_server"`
	DatabaseName     string `mapstructure:"db_database" json:"db_database"`
	DatabasePort     int    `mapstructure:"db_port" json:"db_port"`
	DatabaseEncrypt  bool   `mapstructure:"db_encrypt" json:"db_encrypt"`
	MaxQueryRows     int    `mapstructure:"max_query_rows" json:"max_query_rows"`

	// Session store bounds
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes" json:"session_ttl_minutes"` // 0 = no TTL eviction
	SessionCapacity   int `mapstructure:"session_capacity" json:"session_capacity"`       // 0 = unbounded

	// Serve configuration
	Addr       string `mapstructure:"addr" json:"addr"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP rate limiter burst (0 = default)

	// Observability configuration (see observability wiring in internal/observability)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"` // empty = tracing disabled
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	// Configuration directory: ~/.dbchat/
	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(home, ".dbchat"))
	}
	v.AddConfigPath(".") // Also support current directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("max_turns", DefaultMaxTurns)

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Database defaults
	v.SetDefault("db_port", DefaultDatabasePort)
	v.SetDefault("db_encrypt", false)
	v.SetDefault("max_query_rows", DefaultMaxQueryRows)

	// Session store defaults: evict after 2h idle, at most 1000 live sessions
	v.SetDefault("session_ttl_minutes", 120)
	v.SetDefault("session_capacity", 1000)

	// Serve defaults
	v.SetDefault("addr", "127.0.0.1:3500")
	v.SetDefault("trust_proxy", false)

	// Observability defaults
	v.SetDefault("service_name", "dbchat")
	v.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
//
// The DB_* names are the service's external configuration contract;
// the DBCHAT_* names are runtime overrides for operational settings.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Database connection (required: user, password, server, database)
	mustBind("db_user", "DB_USER")
	mustBind("db_password", "DB_PASSWORD")
	mustBind("db_server", "DB_SERVER")
	mustBind("db_database", "DB_DATABASE")
	mustBind("db_port", "DB_PORT")
	mustBind("db_encrypt", "DB_ENCRYPT")

	// AI provider and model overrides
	mustBind("provider", "DBCHAT_PROVIDER")
	mustBind("model_name", "DBCHAT_MODEL_NAME")
	mustBind("ollama_host", "DBCHAT_OLLAMA_HOST")
	mustBind("max_turns", "DBCHAT_MAX_TURNS")

	// Serve overrides
	mustBind("addr", "DBCHAT_ADDR")
	mustBind("trust_proxy", "DBCHAT_TRUST_PROXY")
	mustBind("rate_burst", "DBCHAT_RATE_BURST")

	// Session store overrides
	mustBind("session_ttl_minutes", "DBCHAT_SESSION_TTL_MINUTES")
	mustBind("session_capacity", "DBCHAT_SESSION_CAPACITY")

	// Observability
	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("service_name", "DBCHAT_SERVICE_NAME")
	mustBind("environment", "DBCHAT_ENVIRONMENT")

	// NOTE: GEMINI_API_KEY / OPENAI_API_KEY are read directly by the
	// Genkit provider plugins, not via Viper.
}

// Validate checks the configuration for the serve and mcp commands.
// Missing required database fields are reported together by name so a
// misconfigured deployment fails fast with one actionable error.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseUser == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DatabasePassword == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.DatabaseServer == "" {
		missing = append(missing, "DB_SERVER")
	}
	if c.DatabaseName == "" {
		missing = append(missing, "DB_DATABASE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDatabaseConfig, strings.Join(missing, ", "))
	}

	if c.DatabasePort < 1 || c.DatabasePort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidDatabasePort, c.DatabasePort)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.MaxQueryRows < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidMaxQueryRows, c.MaxQueryRows)
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	return nil
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against
// real password characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show
// the first and last 2 characters for debug utility.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - DatabasePassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DatabasePassword = maskSecret(a.DatabasePassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
