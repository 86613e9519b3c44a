// Package config loads and manages chatblock configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, ANTHROPIC_API_KEY, etc.)
// 2. Config file path specified via --config flag
// 3. ~/.config/chatblock/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level: "debug" | "info" | "warn" | "error" (default "error")
	Level string `yaml:"level"`

	// Format: "text" (default) | "json"
	Format string `yaml:"format"`
}

// Config is the complete configuration structure for chatblock.
type Config struct {
	// Provider is the active provider name (e.g. "openai", "anthropic", "deepseek")
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// SystemPrompt guides the conversation (empty uses a minimal default).
	SystemPrompt string `yaml:"system_prompt"`

	// Stream selects incremental output in chat mode.
	Stream bool `yaml:"stream"`

	// Temperature controls output randomness. 0 uses the session default.
	Temperature float64 `yaml:"temperature"`

	// MaxOutputTokens is the per-call output reservation. 0 uses the
	// session default.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// RaiseOnErrors propagates provider failures instead of degrading
	// them into synthetic answers.
	RaiseOnErrors bool `yaml:"raise_on_errors"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log"`
}

// KnownProviderBaseURLs maps well-known OpenAI-compatible provider names to
// their base URLs. Anthropic uses its native SDK and needs no entry.
var KnownProviderBaseURLs = map[string]string{
	"openai":   "",
	"deepseek": "https://api.deepseek.com/v1",
	"minimax":  "https://api.minimax.chat/v1",
	"kimi":     "https://api.moonshot.cn/v1",
	"qwen":     "https://dashscope.aliyuncs.com/compatible-mode/v1",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "openai",
		Stream:    true,
		Providers: make(map[string]*ProviderConfig),
		Log:       LogConfig{Level: "error", Format: "text"},
	}
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "chatblock", "config.yaml")
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	return cfg, nil
}

// GetProviderConfig returns the config for the named provider, or an empty
// config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	// Provider selection first, so generic overrides land on the right entry.
	if v := os.Getenv("CHATBLOCK_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("CHATBLOCK_MODEL"); v != "" {
		cfg.Model = v
	}

	// Generic overrides
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		if cfg.Providers[cfg.Provider] == nil {
			cfg.Providers[cfg.Provider] = &ProviderConfig{}
		}
		cfg.Providers[cfg.Provider].APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		if cfg.Providers[cfg.Provider] == nil {
			cfg.Providers[cfg.Provider] = &ProviderConfig{}
		}
		cfg.Providers[cfg.Provider].BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	// Vendor-specific keys
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if cfg.Providers["anthropic"] == nil {
			cfg.Providers["anthropic"] = &ProviderConfig{}
		}
		cfg.Providers["anthropic"].APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Providers["openai"] == nil {
			cfg.Providers["openai"] = &ProviderConfig{}
		}
		if cfg.Providers["openai"].APIKey == "" {
			cfg.Providers["openai"].APIKey = v
		}
	}
}
