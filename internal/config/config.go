package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"home-assistant/internal/models"
)

const (
	DefaultConfigDir  = ".home-assistant"
	DefaultConfigFile = "config.yaml"

	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// PlaceholderAPIKey is the value shipped in example configs. It is never sent.
	PlaceholderAPIKey = "gsk_YOUR_GROQ_API_KEY_HERE"
)

// Environment overrides, also read from a local .env file.
const (
	EnvAPIKey  = "GROQ_API_KEY"
	EnvBaseURL = "GROQ_BASE_URL"
	EnvModel   = "HOME_ASSISTANT_MODEL"
)

// Config represents the application configuration
type Config struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	SystemPrompt   string        `yaml:"system_prompt"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`

	// MetricsAddr enables the Prometheus endpoint when set, e.g. "127.0.0.1:9464"
	MetricsAddr string `yaml:"metrics_addr"`

	Voice VoiceConfig `yaml:"voice"`
}

// VoiceConfig describes the external speech-to-text command.
// An empty Command means voice input is unavailable.
type VoiceConfig struct {
	Command  []string `yaml:"command"`
	Language string   `yaml:"language"`
}

func DefaultConfig() *Config {
	return &Config{
		APIKey:         PlaceholderAPIKey,
		BaseURL:        DefaultBaseURL,
		Model:          models.DefaultModel,
		SystemPrompt:   models.DefaultSystemPrompt,
		RequestTimeout: 5 * time.Minute,
		LogLevel:       "info",
		Voice: VoiceConfig{
			Language: "en-US",
		},
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, DefaultConfigDir, DefaultConfigFile), nil
}

// Load loads the configuration from the default path, creating it if missing.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path. A missing file is replaced by
// the defaults, which are written back when possible. Environment variables
// (and a .env file in the working directory) override file values.
func LoadFrom(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// If save fails the defaults still work for this run
		_ = Save(cfg, configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to path
func Save(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
}

// Validate validates the configuration values. A missing API key is not a
// validation error: the app starts and blocks submission until one is set.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got %q", c.BaseURL)
	}

	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
		}
	}

	return nil
}

// HasCredential reports whether a usable API key is configured.
func (c *Config) HasCredential() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// VoiceEnabled reports whether a speech-to-text command is configured.
func (c *Config) VoiceEnabled() bool {
	return len(c.Voice.Command) > 0 && strings.TrimSpace(c.Voice.Command[0]) != ""
}
