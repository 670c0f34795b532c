package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents process configuration
type Config struct {
	// OneBot runtime connection
	OneBot OneBotConfig

	// Settings file location (empty means candidate lookup)
	SettingsPath string

	// Forward history
	History HistoryConfig

	// HTTP API
	API APIConfig

	// Feishu relay sink (optional)
	Feishu FeishuConfig

	// Relevance filter model (optional)
	OpenAI OpenAIConfig

	// Probe guard window
	GuardWindow time.Duration

	// Debug mode
	Debug bool
}

// OneBotConfig contains the chat runtime connection settings
type OneBotConfig struct {
	URL         string
	AccessToken string
}

// HistoryConfig contains forward history settings
type HistoryConfig struct {
	DBPath        string
	RetentionDays int
	PruneSpec     string // cron spec
}

// Retention returns how long records are kept
func (h HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// APIConfig contains the HTTP API settings
type APIConfig struct {
	Port int
}

// FeishuConfig contains Feishu app credentials
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Configured reports whether credentials are present
func (c FeishuConfig) Configured() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// OpenAIConfig contains the relevance filter model settings
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	historyDBPath := os.Getenv("HISTORY_DB_PATH")
	if historyDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		historyDBPath = filepath.Join(homeDir, ".buytheway", "history.db")
	}

	wsURL := os.Getenv("ONEBOT_WS_URL")
	if wsURL == "" {
		wsURL = "ws://127.0.0.1:3001"
	}

	pruneSpec := os.Getenv("HISTORY_PRUNE_SPEC")
	if pruneSpec == "" {
		pruneSpec = "@every 1h"
	}

	guard := 100 * time.Millisecond
	if val := os.Getenv("PROBE_GUARD_WINDOW"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			guard = parsed
		}
	}

	return &Config{
		OneBot: OneBotConfig{
			URL:         wsURL,
			AccessToken: os.Getenv("ONEBOT_ACCESS_TOKEN"),
		},
		SettingsPath: os.Getenv("BTW_SETTINGS_PATH"),
		History: HistoryConfig{
			DBPath:        historyDBPath,
			RetentionDays: envInt("HISTORY_RETENTION_DAYS", 30),
			PruneSpec:     pruneSpec,
		},
		API: APIConfig{
			Port: envInt("API_PORT", 9877),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
		},
		GuardWindow: guard,
		Debug:       os.Getenv("DEBUG") == "true",
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OneBot.URL == "" {
		return &ConfigError{Field: "ONEBOT_WS_URL", Message: "required"}
	}
	if c.History.RetentionDays <= 0 {
		return &ConfigError{Field: "HISTORY_RETENTION_DAYS", Message: "must be positive"}
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return &ConfigError{Field: "API_PORT", Message: "out of range"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
