// Package config provides configuration management for the Kaiwa server.
// It handles loading and parsing the YAML configuration file, applying
// defaults and environment overrides, and hot-reloading on file changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int `yaml:"port" json:"port"`

	// RequestLog enables detailed request logging to a rotated file.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// LoggingLevel selects the log level (debug, info, warn, error).
	LoggingLevel string `yaml:"logging-level" json:"logging-level"`

	// LogDir is the directory for rotated log files. Empty logs to stdout only.
	LogDir string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// ChannelSecret is the shared secret used to authenticate webhook
	// deliveries. Overridden by KAIWA_CHANNEL_SECRET.
	ChannelSecret string `yaml:"channel-secret" json:"channel-secret"`

	// ChannelToken is the bearer token for the platform reply API.
	// Overridden by KAIWA_CHANNEL_TOKEN.
	ChannelToken string `yaml:"channel-token" json:"channel-token"`

	// GeminiAPIKey authenticates calls to the text-generation backend.
	// Overridden by KAIWA_GEMINI_API_KEY.
	GeminiAPIKey string `yaml:"gemini-api-key" json:"gemini-api-key"`

	// GeminiModel is the backend model name used for all handlers.
	GeminiModel string `yaml:"gemini-model" json:"gemini-model"`

	// HistoryLimit is the maximum number of messages kept per conversation.
	HistoryLimit int `yaml:"history-limit" json:"history-limit"`

	// TTLMinutes is how long an untouched conversation survives. 0 disables expiry.
	TTLMinutes int `yaml:"ttl-minutes" json:"ttl-minutes"`

	// MaxConversations caps the number of live conversations. 0 is unbounded.
	MaxConversations int `yaml:"max-conversations" json:"max-conversations"`

	// SummaryMaxMessages bounds how much history handlers embed in prompts.
	SummaryMaxMessages int `yaml:"summary-max-messages" json:"summary-max-messages"`

	// Timezone is the IANA zone name used only in prompt text and calendar links.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// envChannelSecret, envChannelToken and envGeminiAPIKey name the environment
// variables that override their YAML counterparts.
const (
	envChannelSecret = "KAIWA_CHANNEL_SECRET"
	envChannelToken  = "KAIWA_CHANNEL_TOKEN"
	envGeminiAPIKey  = "KAIWA_GEMINI_API_KEY"
)

// DefaultConfig returns the configuration used when fields are unset.
func DefaultConfig() *Config {
	return &Config{
		Port:               8317,
		LoggingLevel:       "info",
		Metrics:            true,
		GeminiModel:        "gemini-2.0-flash",
		HistoryLimit:       50,
		TTLMinutes:         120,
		MaxConversations:   500,
		SummaryMaxMessages: 30,
		Timezone:           "Asia/Tokyo",
	}
}

// LoadConfig reads the YAML file at path, applies defaults for unset fields
// and environment overrides for secrets. A missing file yields pure defaults
// plus environment values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8317
	}
	if c.LoggingLevel == "" {
		c.LoggingLevel = "info"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.SummaryMaxMessages <= 0 {
		c.SummaryMaxMessages = 30
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Tokyo"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envChannelSecret); v != "" {
		c.ChannelSecret = v
	}
	if v := os.Getenv(envChannelToken); v != "" {
		c.ChannelToken = v
	}
	if v := os.Getenv(envGeminiAPIKey); v != "" {
		c.GeminiAPIKey = v
	}
}

// TTL returns the conversation TTL as a duration. 0 means no expiry.
func (c *Config) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}
