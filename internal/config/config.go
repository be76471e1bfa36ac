// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultMaxChars            = 30000
	DefaultModelTimeout        = 60 * time.Second
	DefaultModelRetries        = 1
	DefaultDatabaseURL         = "sqlite://contracts.db"
	DefaultModel               = "gemini-2.5-flash"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// Config represents the application configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from the environment or defaults.
type Config struct {
	DatabaseURL string `json:"database_url,omitempty"` // postgres://, sqlite://, or memory://
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	Model       string `json:"model,omitempty"`        // Gemini model used for extraction

	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"` // below this, review is forced
	MaxChars            int      `json:"max_chars,omitempty"`            // truncation budget forwarded to the model
	ModelTimeout        Duration `json:"model_timeout,omitempty"`        // per-attempt bound on the model call
	ModelRetries        *int     `json:"model_retries,omitempty"`        // nil means default; capped at 1
	RulesPath           string   `json:"rules_path,omitempty"`           // optional YAML rule table

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// Duration is a time.Duration that unmarshals from strings like "45s".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration in its string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config from environment variables. Unset variables stay zero.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		Model:       os.Getenv("GEMINI_MODEL"),
		RulesPath:   os.Getenv("AUDIT_RULES_PATH"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFormat:   os.Getenv("LOG_FORMAT"),
	}
	if v, err := strconv.ParseFloat(os.Getenv("AUDIT_CONFIDENCE_THRESHOLD"), 64); err == nil {
		cfg.ConfidenceThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("AUDIT_MAX_CHARS")); err == nil {
		cfg.MaxChars = v
	}
	if v, err := time.ParseDuration(os.Getenv("AUDIT_MODEL_TIMEOUT")); err == nil {
		cfg.ModelTimeout = Duration(v)
	}
	if v, err := strconv.Atoi(os.Getenv("AUDIT_MODEL_RETRIES")); err == nil {
		cfg.ModelRetries = &v
	}
	return cfg
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DatabaseURL:         DefaultDatabaseURL,
		Model:               DefaultModel,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxChars:            DefaultMaxChars,
		ModelTimeout:        Duration(DefaultModelTimeout),
		ModelRetries:        intPtr(DefaultModelRetries),
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
	}
}

// Validate checks that the configuration has valid values.
// The API key is not required here; without it extraction degrades to the fallback record.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("config error: 'confidence_threshold' must be between 0 and 1")
	}
	if c.MaxChars < 0 {
		return fmt.Errorf("config error: 'max_chars' must be non-negative")
	}
	if c.ModelTimeout < 0 {
		return fmt.Errorf("config error: 'model_timeout' must be non-negative")
	}
	if c.ModelRetries != nil && (*c.ModelRetries < 0 || *c.ModelRetries > 1) {
		return fmt.Errorf("config error: 'model_retries' must be 0 or 1")
	}

	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: rules file not found: %s", c.RulesPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.RulesPath == "" {
		result.RulesPath = defaults.RulesPath
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.ConfidenceThreshold == 0 {
		result.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if result.MaxChars == 0 {
		result.MaxChars = defaults.MaxChars
	}
	if result.ModelTimeout == 0 {
		result.ModelTimeout = defaults.ModelTimeout
	}
	if result.ModelRetries == nil {
		result.ModelRetries = defaults.ModelRetries
	}

	return result
}

// Resolve layers environment over the config file over built-in defaults.
// A nil file config is allowed.
func Resolve(file *Config) Config {
	base := Default()
	if file != nil {
		base = file.MergeWithDefaults(base)
	}
	env := FromEnv()
	return env.MergeWithDefaults(base)
}

// Retries returns the configured retry count, defaulting to DefaultModelRetries.
func (c *Config) Retries() int {
	if c.ModelRetries == nil {
		return DefaultModelRetries
	}
	return *c.ModelRetries
}

func intPtr(i int) *int { return &i }
