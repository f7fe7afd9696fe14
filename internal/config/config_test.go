package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

// setRequiredDatabaseEnv sets the four required DB_* variables so Load/Validate
// succeed; individual tests unset the ones they want missing.
func setRequiredDatabaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "sa")
	t.Setenv("DB_PASSWORD", "Str0ng_Passw0rd!")
	t.Setenv("DB_SERVER", "localhost")
	t.Setenv("DB_DATABASE", "appdb")
}

// isolateConfigDir points HOME and the working directory at empty temp dirs so
// a developer's real ~/.dbchat/config.yaml cannot leak into test results.
func isolateConfigDir(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolateConfigDir(t)
	setRequiredDatabaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderGemini {
		t.Errorf("expected default Provider %q, got %q", ProviderGemini, cfg.Provider)
	}
	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("expected default ModelName 'gemini-2.5-flash', got %q", cfg.ModelName)
	}
	if cfg.MaxTurns != DefaultMaxTurns {
		t.Errorf("expected default MaxTurns %d, got %d", DefaultMaxTurns, cfg.MaxTurns)
	}
	if cfg.DatabasePort != DefaultDatabasePort {
		t.Errorf("expected default DatabasePort %d, got %d", DefaultDatabasePort, cfg.DatabasePort)
	}
	if cfg.DatabaseEncrypt {
		t.Error("expected DatabaseEncrypt to default to false")
	}
	if cfg.MaxQueryRows != DefaultMaxQueryRows {
		t.Errorf("expected default MaxQueryRows %d, got %d", DefaultMaxQueryRows, cfg.MaxQueryRows)
	}
	if cfg.SessionTTLMinutes != 120 {
		t.Errorf("expected default SessionTTLMinutes 120, got %d", cfg.SessionTTLMinutes)
	}
	if cfg.SessionCapacity != 1000 {
		t.Errorf("expected default SessionCapacity 1000, got %d", cfg.SessionCapacity)
	}
	if cfg.Addr != "127.0.0.1:3500" {
		t.Errorf("expected default Addr '127.0.0.1:3500', got %q", cfg.Addr)
	}
	if cfg.ServiceName != "dbchat" {
		t.Errorf("expected default ServiceName 'dbchat', got %q", cfg.ServiceName)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults with DB env set failed: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateConfigDir(t)
	setRequiredDatabaseEnv(t)
	t.Setenv("DB_PORT", "14330")
	t.Setenv("DB_ENCRYPT", "true")
	t.Setenv("DBCHAT_PROVIDER", "ollama")
	t.Setenv("DBCHAT_MODEL_NAME", "llama3.3")
	t.Setenv("DBCHAT_MAX_TURNS", "10")
	t.Setenv("DBCHAT_ADDR", "0.0.0.0:8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DatabasePort != 14330 {
		t.Errorf("expected DatabasePort 14330, got %d", cfg.DatabasePort)
	}
	if !cfg.DatabaseEncrypt {
		t.Error("expected DatabaseEncrypt true")
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("expected Provider 'ollama', got %q", cfg.Provider)
	}
	if cfg.ModelName != "llama3.3" {
		t.Errorf("expected ModelName 'llama3.3', got %q", cfg.ModelName)
	}
	if cfg.MaxTurns != 10 {
		t.Errorf("expected MaxTurns 10, got %d", cfg.MaxTurns)
	}
	if cfg.Addr != "0.0.0.0:8080" {
		t.Errorf("expected Addr '0.0.0.0:8080', got %q", cfg.Addr)
	}
}

func TestValidateMissingDatabaseFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		mention []string
		absent  []string
	}{
		{
			name:    "missing user",
			mutate:  func(c *Config) { c.DatabaseUser = "" },
			mention: []string{"DB_USER"},
			absent:  []string{"DB_PASSWORD", "DB_SERVER", "DB_DATABASE"},
		},
		{
			name:    "missing password",
			mutate:  func(c *Config) { c.DatabasePassword = "" },
			mention: []string{"DB_PASSWORD"},
			absent:  []string{"DB_USER"},
		},
		{
			name:    "missing server",
			mutate:  func(c *Config) { c.DatabaseServer = "" },
			mention: []string{"DB_SERVER"},
			absent:  []string{"DB_USER"},
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.DatabaseName = "" },
			mention: []string{"DB_DATABASE"},
			absent:  []string{"DB_USER"},
		},
		{
			name: "all missing reported together",
			mutate: func(c *Config) {
				c.DatabaseUser = ""
				c.DatabasePassword = ""
				c.DatabaseServer = ""
				c.DatabaseName = ""
			},
			mention: []string{"DB_USER", "DB_PASSWORD", "DB_SERVER", "DB_DATABASE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrMissingDatabaseConfig) {
				t.Fatalf("expected ErrMissingDatabaseConfig, got %v", err)
			}
			for _, want := range tt.mention {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should name %s", err.Error(), want)
				}
			}
			for _, notWant := range tt.absent {
				if strings.Contains(err.Error(), notWant) {
					t.Errorf("error %q should not name %s", err.Error(), notWant)
				}
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"port zero", func(c *Config) { c.DatabasePort = 0 }, ErrInvalidDatabasePort},
		{"port too large", func(c *Config) { c.DatabasePort = 70000 }, ErrInvalidDatabasePort},
		{"port negative", func(c *Config) { c.DatabasePort = -1 }, ErrInvalidDatabasePort},
		{"zero max turns", func(c *Config) { c.MaxTurns = 0 }, ErrInvalidMaxTurns},
		{"negative max turns", func(c *Config) { c.MaxTurns = -5 }, ErrInvalidMaxTurns},
		{"zero max query rows", func(c *Config) { c.MaxQueryRows = 0 }, ErrInvalidMaxQueryRows},
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }, ErrInvalidProvider},
		{"empty provider", func(c *Config) { c.Provider = "" }, ErrInvalidProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DatabasePassword = "super-secret-password"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if strings.Contains(string(data), "super-secret-password") {
		t.Error("marshaled config leaked the database password")
	}
	if !strings.Contains(string(data), "su") || !strings.Contains(string(data), maskedValue) {
		t.Errorf("expected masked password in output, got %s", data)
	}
}

func TestStringMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DatabasePassword = "hunter2hunter2"

	s := cfg.String()
	if strings.Contains(s, "hunter2hunter2") {
		t.Errorf("String() leaked the database password: %s", s)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", ""},
		{"short fully masked", "abc", maskedValue},
		{"exactly eight fully masked", "12345678", maskedValue},
		{"long shows edges", "abcdefghijkl", "ab<" + maskedValue + ">kl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini default", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", ProviderGemini, "ollama/mistral", "ollama/mistral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigFileLowerPriorityThanEnv(t *testing.T) {
	isolateConfigDir(t)
	setRequiredDatabaseEnv(t)

	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("config.yaml", []byte("model_name: from-file\nmax_turns: 7\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("DBCHAT_MODEL_NAME", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != "from-env" {
		t.Errorf("env should override file: got %q", cfg.ModelName)
	}
	if cfg.MaxTurns != 7 {
		t.Errorf("file should override default: got %d", cfg.MaxTurns)
	}
}

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	return &Config{
		Provider:          ProviderGemini,
		ModelName:         "gemini-2.5-flash",
		MaxTurns:          DefaultMaxTurns,
		DatabaseUser:      "sa",
		DatabasePassword:  "Str0ng_Passw0rd!",
		DatabaseServer:    "localhost",
		DatabaseName:      "appdb",
		DatabasePort:      DefaultDatabasePort,
		MaxQueryRows:      DefaultMaxQueryRows,
		SessionTTLMinutes: 120,
		SessionCapacity:   1000,
		Addr:              "127.0.0.1:3500",
	}
}
