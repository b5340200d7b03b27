// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slotenwacht/slotenbot/intake"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "SLOTENBOT_CONFIG"

// Config is the bot's complete configuration, read once at startup.
// Nothing here is mutable at runtime.
type Config struct {
	// Telegram configures the Bot API transport.
	Telegram TelegramConfig `yaml:"telegram"`

	// GroupID is the designated group chat where reports are
	// announced (negative for Telegram groups). Required.
	GroupID int64 `yaml:"group_id"`

	// AllowedUsers is the allow-list of Telegram user IDs permitted
	// to submit reports. Required and non-empty: an empty list would
	// make the bot reject everyone.
	AllowedUsers []int64 `yaml:"allowed_users"`

	// Database configures report storage.
	Database DatabaseConfig `yaml:"database"`

	// Intake configures the conversation schema and session expiry.
	Intake IntakeConfig `yaml:"intake"`

	// Notify configures the group broadcast retry policy.
	Notify NotifyConfig `yaml:"notify"`
}

// TelegramConfig configures the Bot API client.
type TelegramConfig struct {
	// Token is the bot token from @BotFather. Required.
	Token string `yaml:"token"`

	// APIURL overrides the Bot API endpoint. Empty means the
	// production endpoint.
	APIURL string `yaml:"api_url"`

	// PollTimeout is the long-poll hold in seconds. Default 30.
	PollTimeout int `yaml:"poll_timeout"`
}

// DatabaseConfig configures report storage.
type DatabaseConfig struct {
	// Path is the SQLite database file. Default "slotenbot.db".
	Path string `yaml:"path"`
}

// IntakeConfig configures the conversation.
type IntakeConfig struct {
	// Fields overrides the report schema. Empty means the built-in
	// locksmith fields.
	Fields []FieldConfig `yaml:"fields"`

	// IdleTimeout is how long an untouched session survives before
	// the sweep drops it. Default 1h.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// SweepInterval is how often the sweep runs. Default 5m.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// FieldConfig is one schema field as written in YAML.
type FieldConfig struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Prompt  string `yaml:"prompt"`
	Pattern string `yaml:"pattern"`
}

// NotifyConfig configures broadcast retries.
type NotifyConfig struct {
	// MaxAttempts is the send attempt ceiling. Default 3.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the first retry delay, doubling per attempt.
	// Default 1s.
	BaseDelay Duration `yaml:"base_delay"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "1h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("config: duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration. Token, group, and
// allow-list have no defaults — the config file must supply them.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: "slotenbot.db",
		},
		Intake: IntakeConfig{
			IdleTimeout:   Duration(time.Hour),
			SweepInterval: Duration(5 * time.Minute),
		},
		Notify: NotifyConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration(time.Second),
		},
	}
}

// Load loads configuration from the file named by SLOTENBOT_CONFIG.
// There is no fallback discovery: if the variable is unset, Load
// fails. This keeps configuration deterministic and auditable.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("config: %s is not set; point it at your slotenbot.yaml or pass --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific path, applying defaults
// for absent fields and validating the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for completeness. Field
// definitions are validated by building the schema.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.GroupID == 0 {
		return fmt.Errorf("group_id is required")
	}
	if len(c.AllowedUsers) == 0 {
		return fmt.Errorf("allowed_users must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Intake.IdleTimeout <= 0 {
		return fmt.Errorf("intake.idle_timeout must be positive")
	}
	if c.Intake.SweepInterval <= 0 {
		return fmt.Errorf("intake.sweep_interval must be positive")
	}
	if _, err := c.Schema(); err != nil {
		return err
	}
	return nil
}

// Schema builds the intake schema from the configured fields, or the
// built-in default when none are configured.
func (c *Config) Schema() (intake.Schema, error) {
	if len(c.Intake.Fields) == 0 {
		return intake.DefaultSchema(), nil
	}

	fields := make([]intake.Field, len(c.Intake.Fields))
	for i, field := range c.Intake.Fields {
		fields[i] = intake.Field{
			Name:    field.Name,
			Label:   field.Label,
			Prompt:  field.Prompt,
			Pattern: field.Pattern,
		}
	}
	return intake.NewSchema(fields)
}
