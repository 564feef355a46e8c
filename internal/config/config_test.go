package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.BaseURL != "https://api.groq.com/openai" {
		t.Errorf("Expected BaseURL to be https://api.groq.com/openai, got %s", cfg.Model.BaseURL)
	}

	if cfg.Model.Classifier == "" || cfg.Model.Agent == "" || cfg.Model.Synthesis == "" {
		t.Error("Expected all role models to be set")
	}

	if cfg.Memory.ShortTermLimit != 40 {
		t.Errorf("Expected ShortTermLimit to be 40, got %d", cfg.Memory.ShortTermLimit)
	}

	if cfg.Memory.MaxInject != 12 {
		t.Errorf("Expected MaxInject to be 12, got %d", cfg.Memory.MaxInject)
	}

	if cfg.Weather.BaseURL != "https://api.openweathermap.org" {
		t.Errorf("Expected Weather BaseURL to be https://api.openweathermap.org, got %s", cfg.Weather.BaseURL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty BaseURL",
			mutate:  func(c *Config) { c.Model.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing role model",
			mutate:  func(c *Config) { c.Model.Synthesis = "" },
			wantErr: true,
		},
		{
			name:    "invalid Temperature",
			mutate:  func(c *Config) { c.Model.Temperature = 3.0 },
			wantErr: true,
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.Model.CacheSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero max inject",
			mutate:  func(c *Config) { c.Memory.MaxInject = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	// Create temp directory
	tmpDir, err := os.MkdirTemp("", "krishimate-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Set config directory for test
	configTestDir := filepath.Join(tmpDir, "config")
	SetConfigDir(configTestDir)

	// Create and save config
	cfg := DefaultConfig()
	cfg.Model.APIKey = "test-api-key"

	err = Save(cfg)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Verify file exists
	configPath := filepath.Join(configTestDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file not created")
	}

	// Load config
	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.Model.APIKey != cfg.Model.APIKey {
		t.Errorf("API Key mismatch: expected %s, got %s", cfg.Model.APIKey, loadedCfg.Model.APIKey)
	}

	if loadedCfg.Model.Agent != cfg.Model.Agent {
		t.Errorf("Agent model mismatch: expected %s, got %s", cfg.Model.Agent, loadedCfg.Model.Agent)
	}
}

func TestChainFor(t *testing.T) {
	cfg := DefaultConfig()

	chain := cfg.Model.ChainFor(RoleAgent)
	if len(chain) == 0 {
		t.Fatal("Expected non-empty chain for agent role")
	}
	if chain[0] != cfg.Model.Agent {
		t.Errorf("Expected chain to start with primary model %s, got %s", cfg.Model.Agent, chain[0])
	}

	// Missing chain falls back to the primary model
	cfg.Model.FallbackChains = nil
	chain = cfg.Model.ChainFor(RoleClassifier)
	if len(chain) != 1 || chain[0] != cfg.Model.Classifier {
		t.Errorf("Expected single-model fallback chain, got %v", chain)
	}
}

func TestIsAPIKeyConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.APIKey = ""

	if cfg.IsAPIKeyConfigured() {
		t.Error("Config without API Key should report not configured")
	}

	cfg.Model.APIKey = "test-key"
	if !cfg.IsAPIKeyConfigured() {
		t.Error("Should return true after setting API Key")
	}
}
