package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultPrimaryModel  = "gemini-2.0-flash"
	DefaultImageModel    = "gemini-2.0-flash-exp-image-generation"
	DefaultFallbackURL   = "https://api.groq.com/openai/v1"
	DefaultFallbackModel = "llama-3.3-70b-versatile"
	DefaultMaxTokens     = 1024
	DefaultTemperature   = 0.7
	DefaultLocale        = "id"
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8790
	DefaultBufSize       = 100
	DefaultHistoryLimit  = 20
	DefaultHistoryTTL    = "1h"
	DefaultCatalogLimit  = 20
)

type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Provider  ProvidersConfig `json:"provider"`
	Store     StoreConfig     `json:"store"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type AssistantConfig struct {
	Locale       string  `json:"locale"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	HistoryLimit int     `json:"historyLimit"`
	HistoryTTL   string  `json:"historyTtl"`
	CatalogLimit int     `json:"catalogLimit"`
}

// ProvidersConfig holds both language-model backends. Primary is a
// Gemini-style multimodal backend, fallback is an OpenAI-compatible
// chat-only backend.
type ProvidersConfig struct {
	Primary  BackendConfig `json:"primary"`
	Fallback BackendConfig `json:"fallback"`
}

type BackendConfig struct {
	APIKey     string `json:"apiKey"`
	BaseURL    string `json:"baseUrl,omitempty"`
	Model      string `json:"model,omitempty"`
	ImageModel string `json:"imageModel,omitempty"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Locale:       DefaultLocale,
			MaxTokens:    DefaultMaxTokens,
			Temperature:  DefaultTemperature,
			HistoryLimit: DefaultHistoryLimit,
			HistoryTTL:   DefaultHistoryTTL,
			CatalogLimit: DefaultCatalogLimit,
		},
		Provider: ProvidersConfig{
			Primary: BackendConfig{
				Model:      DefaultPrimaryModel,
				ImageModel: DefaultImageModel,
			},
			Fallback: BackendConfig{
				BaseURL: DefaultFallbackURL,
				Model:   DefaultFallbackModel,
			},
		},
		Channels: ChannelsConfig{},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".tokobot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("TOKOBOT_GEMINI_API_KEY"); key != "" {
		cfg.Provider.Primary.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.Provider.Primary.APIKey == "" {
		cfg.Provider.Primary.APIKey = key
	}
	if url := os.Getenv("TOKOBOT_GEMINI_BASE_URL"); url != "" {
		cfg.Provider.Primary.BaseURL = url
	}
	if key := os.Getenv("TOKOBOT_FALLBACK_API_KEY"); key != "" {
		cfg.Provider.Fallback.APIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" && cfg.Provider.Fallback.APIKey == "" {
		cfg.Provider.Fallback.APIKey = key
	}
	if url := os.Getenv("TOKOBOT_FALLBACK_BASE_URL"); url != "" {
		cfg.Provider.Fallback.BaseURL = url
	}
	if model := os.Getenv("TOKOBOT_FALLBACK_MODEL"); model != "" {
		cfg.Provider.Fallback.Model = model
	}
	if token := os.Getenv("TOKOBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("TOKOBOT_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if locale := os.Getenv("TOKOBOT_LOCALE"); locale != "" {
		cfg.Assistant.Locale = locale
	}
	if port := os.Getenv("TOKOBOT_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}

	if cfg.Assistant.Locale == "" {
		cfg.Assistant.Locale = DefaultLocale
	}
	if cfg.Assistant.HistoryLimit <= 0 {
		cfg.Assistant.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Assistant.HistoryTTL == "" {
		cfg.Assistant.HistoryTTL = DefaultHistoryTTL
	}
	if cfg.Assistant.CatalogLimit <= 0 {
		cfg.Assistant.CatalogLimit = DefaultCatalogLimit
	}
	if cfg.Assistant.MaxTokens <= 0 {
		cfg.Assistant.MaxTokens = DefaultMaxTokens
	}
	if cfg.Provider.Primary.Model == "" {
		cfg.Provider.Primary.Model = DefaultPrimaryModel
	}
	if cfg.Provider.Primary.ImageModel == "" {
		cfg.Provider.Primary.ImageModel = DefaultImageModel
	}
	if cfg.Provider.Fallback.BaseURL == "" {
		cfg.Provider.Fallback.BaseURL = DefaultFallbackURL
	}
	if cfg.Provider.Fallback.Model == "" {
		cfg.Provider.Fallback.Model = DefaultFallbackModel
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
