package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Assigny configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Scheduling database
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Session history
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// AI provider
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Slack notifications
	Slack SlackConfig `json:"slack" mapstructure:"slack"`

	// Confirmation email
	SMTP SMTPConfig `json:"smtp" mapstructure:"smtp"`

	// Google Calendar
	Calendar CalendarConfig `json:"calendar" mapstructure:"calendar"`

	// Daily digest
	Digest DigestConfig `json:"digest" mapstructure:"digest"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	TimeoutSeconds     int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// DatabaseConfig holds the scheduling database configuration
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
	Seed bool   `json:"seed" mapstructure:"seed"`
}

// SessionsConfig holds session history configuration
type SessionsConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// AIConfig holds the model provider configuration. An empty APIKey leaves
// the engine without a model; it then answers with a fixed apology.
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // anthropic, openai, gemini
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// SlackConfig holds Slack notification configuration
type SlackConfig struct {
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
	Channel  string `json:"channel" mapstructure:"channel"`
}

// SMTPConfig holds confirmation email configuration
type SMTPConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	From     string `json:"from" mapstructure:"from"`
}

// CalendarConfig holds Google Calendar configuration
type CalendarConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token"`
	CalendarID   string `json:"calendar_id" mapstructure:"calendar_id"`
}

// DigestConfig holds the daily digest configuration
type DigestConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"`
	Channel  string `json:"channel" mapstructure:"channel"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8085,
			RateLimitPerMinute: 100,
			TimeoutSeconds:     60,
		},
		Database: DatabaseConfig{
			Seed: true,
		},
		AI: AIConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-5",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Digest: DigestConfig{
			Enabled:  false,
			Schedule: "0 18 * * *",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.AI.Provider != "" {
		validProviders := []string{"anthropic", "openai", "gemini"}
		valid := false
		for _, vp := range validProviders {
			if c.AI.Provider == vp {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid AI provider %s (must be: anthropic, openai, gemini)", c.AI.Provider)
		}
		if c.AI.APIKey != "" && c.AI.Model == "" {
			return fmt.Errorf("ai.model is required when an API key is configured")
		}
	}

	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return fmt.Errorf("slack.channel is required when a bot token is configured")
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when an SMTP host is configured")
	}

	if c.Digest.Enabled && c.Slack.BotToken == "" {
		return fmt.Errorf("digest requires a Slack bot token")
	}

	return nil
}
