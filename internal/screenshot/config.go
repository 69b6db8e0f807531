// Package screenshot provides the screenshot OCR and explanation pipeline.
package screenshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ConfigFileName is the name of the engine/ambient config file within the config directory
const ConfigFileName = "config.json"

// EnvConfigDir overrides the config directory resolution.
const EnvConfigDir = "ASKOLLAMA_CONFIG_DIR"

// Default values for optional configuration fields
const (
	DefaultOCRCommand     = "tesseract"
	DefaultOCRLanguage    = "eng"
	DefaultLLMURL         = "http://127.0.0.1:11434/v1/complete"
	DefaultLLMModel       = "llama2"
	DefaultMaxTokens      = 512
	DefaultResponseFormat = "text"
	DefaultDebounceMs     = 200
	DefaultMaxWorkers     = 8
	DefaultAPIAddr        = "127.0.0.1:7311"
	DefaultLogLevel       = "info"
)

// ErrConfigurationUnavailable is returned when the config directory cannot be resolved.
var ErrConfigurationUnavailable = errors.New("configuration directory unavailable")

// Config holds the engine and ambient options of the pipeline. These are read
// once at startup; the runtime-mutable part lives in Settings.
type Config struct {
	OCRCommand     string `json:"ocr_command" validate:"required"`
	OCRLanguage    string `json:"ocr_language" validate:"required"`
	LLMURL         string `json:"llm_url" validate:"required,url"`
	LLMModel       string `json:"llm_model" validate:"required"`
	MaxTokens      int    `json:"max_tokens" validate:"gt=0"`
	ResponseFormat string `json:"response_format" validate:"oneof=text ollama"`
	DebounceMs     int    `json:"debounce_ms" validate:"gte=0"`
	MaxWorkers     int    `json:"max_workers" validate:"gte=0"` // 0 means unlimited
	APIAddr        string `json:"api_addr" validate:"omitempty,hostname_port"`
	LogDir         string `json:"log_dir"`
	LogLevel       string `json:"log_level" validate:"oneof=debug info error"`
}

var validate = validator.New()

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	cfg := &Config{APIAddr: DefaultAPIAddr, MaxWorkers: DefaultMaxWorkers}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults sets default values for fields that are empty or zero.
// APIAddr and MaxWorkers are left alone: an empty address disables the
// control API and zero workers means no limit. Their defaults come from
// DefaultConfig, which LoadConfig decodes into.
func (c *Config) ApplyDefaults() {
	if c.OCRCommand == "" {
		c.OCRCommand = DefaultOCRCommand
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = DefaultOCRLanguage
	}
	if c.LLMURL == "" {
		c.LLMURL = DefaultLLMURL
	}
	if c.LLMModel == "" {
		c.LLMModel = DefaultLLMModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ResponseFormat == "" {
		c.ResponseFormat = DefaultResponseFormat
	}
	if c.DebounceMs == 0 {
		c.DebounceMs = DefaultDebounceMs
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Debounce returns the debounce interval as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ConfigDir returns the directory holding config.json, settings.json, the PID
// file and the default log directory. ASKOLLAMA_CONFIG_DIR takes precedence
// over the platform config directory.
func ConfigDir() (string, error) {
	if env := os.Getenv(EnvConfigDir); env != "" {
		return expandTilde(env), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
	}
	return filepath.Join(base, "askollama"), nil
}

// LoadConfig reads config.json from dir. A missing file yields the defaults,
// as does any key absent from the file. Paths containing ~ are expanded to the
// user's home directory.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.LogDir = filepath.Join(dir, "logs")
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(dir, "logs")
	}
	cfg.LogDir = expandTilde(cfg.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config to dir/config.json, creating dir if needed.
func (c *Config) SaveConfig(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644)
}

// expandTilde expands ~ at the beginning of a path to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
