package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Role identifies which kind of generation call a model serves.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleAgent      Role = "agent"
	RoleSynthesis  Role = "synthesis"
)

// Config application configuration structure
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Weather   WeatherConfig   `yaml:"weather"`
}

// ModelConfig LLM model configuration
type ModelConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Per-role primary models
	Classifier string `yaml:"classifier"`
	Agent      string `yaml:"agent"`
	Synthesis  string `yaml:"synthesis"`

	// Per-role fallback chains, tried in order when a model fails or is
	// hard-blocked. The primary model should be the first entry.
	FallbackChains map[string][]string `yaml:"fallback_chains"`

	MaxRetries     int `yaml:"max_retries"`
	RetryBaseDelay int `yaml:"retry_base_delay_seconds"`
	CacheSize      int `yaml:"cache_size"`
}

// EmbeddingConfig embedding service configuration
type EmbeddingConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimension      int    `yaml:"dimension"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// MemoryConfig memory storage configuration
type MemoryConfig struct {
	DBPath string `yaml:"db_path"`

	// ShortTermLimit is the max number of buffered entries per user
	// (two entries per turn pair).
	ShortTermLimit int `yaml:"short_term_limit"`

	// MaxInject is the max number of facts injected into a prompt.
	MaxInject int `yaml:"max_inject"`
}

// WeatherConfig weather provider configuration
type WeatherConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Model: ModelConfig{
			APIKey:      "",
			BaseURL:     "https://api.groq.com/openai",
			Temperature: 0.3,
			MaxTokens:   2048,
			Classifier:  "llama-3.1-8b-instant",
			Agent:       "llama-3.3-70b-versatile",
			Synthesis:   "llama-3.1-8b-instant",
			FallbackChains: map[string][]string{
				string(RoleClassifier): {"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
				string(RoleAgent):      {"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
				string(RoleSynthesis):  {"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
			},
			MaxRetries:     3,
			RetryBaseDelay: 2,
			CacheSize:      128,
		},
		Embedding: EmbeddingConfig{
			APIKey:         "",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "text-embedding-3-small",
			Dimension:      1536,
			TimeoutSeconds: 20,
			MaxRetries:     2,
		},
		Memory: MemoryConfig{
			DBPath:         filepath.Join(homeDir, ".krishimate", "memory.db"),
			ShortTermLimit: 40,
			MaxInject:      12,
		},
		Weather: WeatherConfig{
			APIKey:         "",
			BaseURL:        "https://api.openweathermap.org",
			TimeoutSeconds: 10,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file and merges with secrets
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create default config
		cfg := DefaultConfig()
		cfg.mergeSecrets()

		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse config
	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.mergeSecrets()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeSecrets fills API keys from the secrets file when missing
func (c *Config) mergeSecrets() {
	secrets, _ := LoadSecrets()
	if secrets == nil {
		return
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = secrets.GetModelAPIKey()
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = secrets.GetEmbeddingAPIKey()
	}
	if c.Weather.APIKey == "" {
		c.Weather.APIKey = secrets.GetWeatherAPIKey()
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Serialize config
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	// Add header comment
	content := "# KrishiMate Configuration File\n# For more info: https://github.com/hession/krishimate\n\n" + string(data)

	// Write file
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate model config
	if c.Model.BaseURL == "" {
		return fmt.Errorf("config error: model.base_url cannot be empty")
	}
	if c.Model.Classifier == "" || c.Model.Agent == "" || c.Model.Synthesis == "" {
		return fmt.Errorf("config error: model.classifier, model.agent and model.synthesis cannot be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config error: model.temperature must be between 0 and 2")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("config error: model.max_tokens must be greater than 0")
	}
	if c.Model.MaxRetries <= 0 {
		return fmt.Errorf("config error: model.max_retries must be greater than 0")
	}
	if c.Model.CacheSize <= 0 {
		return fmt.Errorf("config error: model.cache_size must be greater than 0")
	}

	// Validate embedding config
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("config error: embedding.base_url cannot be empty")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config error: embedding.dimension must be greater than 0")
	}

	// Validate memory config
	if c.Memory.DBPath == "" {
		return fmt.Errorf("config error: memory.db_path cannot be empty")
	}
	if c.Memory.ShortTermLimit <= 0 {
		return fmt.Errorf("config error: memory.short_term_limit must be greater than 0")
	}
	if c.Memory.MaxInject <= 0 {
		return fmt.Errorf("config error: memory.max_inject must be greater than 0")
	}

	// Validate weather config
	if c.Weather.BaseURL == "" {
		return fmt.Errorf("config error: weather.base_url cannot be empty")
	}
	if c.Weather.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: weather.timeout_seconds must be greater than 0")
	}

	return nil
}

// ModelFor returns the primary model configured for a role
func (c *ModelConfig) ModelFor(role Role) string {
	switch role {
	case RoleClassifier:
		return c.Classifier
	case RoleSynthesis:
		return c.Synthesis
	default:
		return c.Agent
	}
}

// ChainFor returns the fallback chain for a role, defaulting to the
// role's primary model when no chain is configured
func (c *ModelConfig) ChainFor(role Role) []string {
	if chain, ok := c.FallbackChains[string(role)]; ok && len(chain) > 0 {
		return chain
	}
	return []string{c.ModelFor(role)}
}

// IsAPIKeyConfigured checks if the model API key is configured
func (c *Config) IsAPIKeyConfigured() bool {
	return c.Model.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`KrishiMate Configuration:
  Model:
    API Key: %s
    Base URL: %s
    Classifier: %s
    Agent: %s
    Synthesis: %s
    Temperature: %.1f
    Max Tokens: %d
    Max Retries: %d
    Cache Size: %d
  Embedding:
    API Key: %s
    Base URL: %s
    Model: %s
    Dimension: %d
  Memory:
    DB Path: %s
    Short-Term Limit: %d
    Max Inject: %d
  Weather:
    API Key: %s
    Base URL: %s`,
		redactAPIKey(c.Model.APIKey),
		c.Model.BaseURL,
		c.Model.Classifier,
		c.Model.Agent,
		c.Model.Synthesis,
		c.Model.Temperature,
		c.Model.MaxTokens,
		c.Model.MaxRetries,
		c.Model.CacheSize,
		redactAPIKey(c.Embedding.APIKey),
		c.Embedding.BaseURL,
		c.Embedding.Model,
		c.Embedding.Dimension,
		c.Memory.DBPath,
		c.Memory.ShortTermLimit,
		c.Memory.MaxInject,
		redactAPIKey(c.Weather.APIKey),
		c.Weather.BaseURL,
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..."
	}
	return "***"
}
