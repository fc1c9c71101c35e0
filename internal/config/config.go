// Package config provides application configuration with multi-source priority.
//
// Sources (highest to lowest priority):
//  1. Environment variables (OPENROUTER_KEY, TELEGRAM_BOT_TOKEN, TALLY_URL, ...)
//  2. Config file (~/.tallybi/config.yaml, or ./config.yaml)
//  3. Default values
//
// Validation is fail-fast: Load returns an error before any component is
// constructed with a broken value. Secrets are masked by String/MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the OpenRouter API key is not set.
	ErrMissingAPIKey = errors.New("missing OpenRouter API key")

	// ErrInvalidTallyURL indicates the Tally endpoint is not a valid URL.
	ErrInvalidTallyURL = errors.New("invalid Tally URL")

	// ErrInvalidCompany indicates the company name is empty.
	ErrInvalidCompany = errors.New("invalid company name")

	// ErrInvalidMaxRounds indicates the tool-call round budget is out of range.
	ErrInvalidMaxRounds = errors.New("invalid max rounds")

	// ErrInvalidHistoryLimit indicates the history cap is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidAllowedUser indicates a Telegram allow-list entry is not numeric.
	ErrInvalidAllowedUser = errors.New("invalid allowed Telegram user id")
)

// DefaultModel is the OpenRouter model used when none is configured.
const DefaultModel = "arcee-ai/trinity-large-preview:free"

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when adding
// new secrets.
type Config struct {
	// Tally endpoint
	TallyURL string `mapstructure:"tally_url" json:"tally_url"`
	Company  string `mapstructure:"company" json:"company"`

	// Language model
	OpenRouterKey string `mapstructure:"openrouter_key" json:"openrouter_key"` // SENSITIVE
	Model         string `mapstructure:"model" json:"model"`

	// Orchestration
	MaxRounds    int `mapstructure:"max_rounds" json:"max_rounds"`
	HistoryLimit int `mapstructure:"history_limit" json:"history_limit"`

	// Storage
	SnapshotDir string `mapstructure:"snapshot_dir" json:"snapshot_dir"`
	KnowledgeDB string `mapstructure:"knowledge_db" json:"knowledge_db"`

	// Telegram front-end
	TelegramBotToken     string `mapstructure:"telegram_bot_token" json:"telegram_bot_token"` // SENSITIVE
	AllowedTelegramUsers string `mapstructure:"allowed_telegram_users" json:"allowed_telegram_users"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tallybi")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("tally_url", "http://localhost:9000")
	v.SetDefault("company", "Test BI Corp")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_rounds", 5)
	v.SetDefault("history_limit", 20)
	v.SetDefault("snapshot_dir", filepath.Join(configDir, "snapshots"))
	v.SetDefault("knowledge_db", filepath.Join(configDir, "knowledge.db"))
	v.SetDefault("allowed_telegram_users", "")
}

// bindEnvVariables binds environment variables explicitly. The env names
// match the original deployment so existing .env files keep working.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("tally_url", "TALLY_URL")
	mustBind("company", "TALLY_COMPANY")
	mustBind("openrouter_key", "OPENROUTER_KEY")
	mustBind("model", "MODEL")
	mustBind("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
	mustBind("allowed_telegram_users", "ALLOWED_TELEGRAM_USERS")
}

// Validate checks every field that can break a component at runtime.
func (c *Config) Validate() error {
	u, err := url.Parse(c.TallyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTallyURL, c.TallyURL)
	}
	if strings.TrimSpace(c.Company) == "" {
		return ErrInvalidCompany
	}
	if c.MaxRounds < 1 || c.MaxRounds > 20 {
		return fmt.Errorf("%w: %d (want 1-20)", ErrInvalidMaxRounds, c.MaxRounds)
	}
	if c.HistoryLimit < 2 || c.HistoryLimit > 1000 {
		return fmt.Errorf("%w: %d (want 2-1000)", ErrInvalidHistoryLimit, c.HistoryLimit)
	}
	if _, err := c.AllowedUserIDs(); err != nil {
		return err
	}
	return nil
}

// RequireOpenRouterKey returns an error when no API key is configured.
// Only the orchestrator-facing commands need it; the MCP server does not.
func (c *Config) RequireOpenRouterKey() error {
	if strings.TrimSpace(c.OpenRouterKey) == "" {
		return fmt.Errorf("%w: set OPENROUTER_KEY", ErrMissingAPIKey)
	}
	return nil
}

// AllowedUserIDs parses the comma-separated Telegram allow-list.
// An empty list means the bot is open to everyone.
func (c *Config) AllowedUserIDs() ([]int64, error) {
	if strings.TrimSpace(c.AllowedTelegramUsers) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(c.AllowedTelegramUsers, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAllowedUser, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "████████"
	}
	return s[:2] + "<████████>" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenRouterKey = maskSecret(a.OpenRouterKey)
	a.TelegramBotToken = maskSecret(a.TelegramBotToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so accidental printing never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
