package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Every value can be overridden by environment variables; the environment
// always wins so the tool stays drop-in compatible with scripted callers
// that only export FEISHU_* / TASK_* variables.
type Config struct {
	Feishu FeishuConfig `toml:"feishu"`
	Table  TableConfig  `toml:"table"`
	Fields FieldsConfig `toml:"fields"`
	Client ClientConfig `toml:"client"`
	Store  StoreConfig  `toml:"store"`
}

// FeishuConfig contains the Feishu application credentials.
type FeishuConfig struct {
	AppID     string `toml:"app_id"`
	AppSecret string `toml:"app_secret"`
	BaseURL   string `toml:"base_url"`
}

// TableConfig identifies the task table.
type TableConfig struct {
	URL    string `toml:"url"`
	ViewID string `toml:"view_id"`
}

// FieldsConfig maps logical task field names to physical column names.
type FieldsConfig map[string]string

// ClientConfig contains HTTP client settings.
type ClientConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// StoreConfig contains local run-state database settings.
type StoreConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Env returns the trimmed value of an environment variable, or def when unset or blank.
func Env(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func (c *Config) applyEnv() {
	c.Feishu.AppID = Env("FEISHU_APP_ID", c.Feishu.AppID)
	c.Feishu.AppSecret = Env("FEISHU_APP_SECRET", c.Feishu.AppSecret)
	c.Feishu.BaseURL = Env("FEISHU_BASE_URL", c.Feishu.BaseURL)
	c.Table.URL = Env("TASK_BITABLE_URL", c.Table.URL)
}

// Validate checks that the configuration carries everything needed to reach the store.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feishu.AppID) == "" || strings.TrimSpace(c.Feishu.AppSecret) == "" {
		return fmt.Errorf("%w: FEISHU_APP_ID/FEISHU_APP_SECRET are required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Table.URL) == "" {
		return fmt.Errorf("%w: TASK_BITABLE_URL is required", ErrInvalidConfig)
	}
	return nil
}
