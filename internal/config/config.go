package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no model backend key is configured.
var ErrMissingAPIKey = errors.New("API key not found: set GOOGLE_API_KEY (or GEMINI_API_KEY) or llm.api_key in the config file")

// DefaultDir is the per-workspace state directory.
const DefaultDir = ".timefold"

// Config holds all TIMEFOLD configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Session archive
	Archive ArchiveConfig `yaml:"archive"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "TIMEFOLD",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: ProviderGemini,
			Model:    DefaultModel,
			Timeout:  "120s",
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			DebugMode: false,
		},

		Archive: ArchiveConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(DefaultDir, "archive.db"),
		},

		UI: UIConfig{
			ShowReasoning: true,
			OutputDir:     ".",
		},
	}
}

// DefaultPath returns the config file location inside a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, DefaultDir, "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from a .env file in dir.
// Variables already present in the environment are left untouched.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins when both are set
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("TIMEFOLD_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if os.Getenv("TIMEFOLD_DARK_MODE") == "1" {
		c.UI.DarkMode = true
	}
	if path := os.Getenv("TIMEFOLD_DB"); path != "" {
		c.Archive.DatabasePath = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.LLM.Provider != "" && c.LLM.Provider != ProviderGemini {
		return fmt.Errorf("invalid LLM provider: %s (valid: %s)", c.LLM.Provider, ProviderGemini)
	}
	return nil
}
