// Package config loads clipbridge configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel    string        `yaml:"log_level"` // debug | info | warn | error
	ProductName string        `yaml:"product_name"`
	Server      ServerConfig  `yaml:"server"`
	Client      ClientConfig  `yaml:"client"`
	Browser     BrowserConfig `yaml:"browser"`
}

// ServerConfig configures the clipboard endpoint.
type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ServerID     string        `yaml:"server_id"`    // generated when empty
	ServiceRoot  string        `yaml:"service_root"` // prefix before /clipboard
	DBPath       string        `yaml:"db_path"`
	MaxBody      int64         `yaml:"max_body"`
	Retention    time.Duration `yaml:"retention"`
	SanitizeHTML *bool         `yaml:"sanitize_html"`
	Compression  string        `yaml:"compression"` // none | zstd | lz4
	RateLimit    RateLimit     `yaml:"rate_limit"`
}

// RateLimit is the per-IP budget of the clipboard endpoint. Zero
// MaxRequests disables it.
type RateLimit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// ClientConfig configures clipboard sessions.
type ClientConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	GraceWindow       time.Duration `yaml:"grace_window"`
	HideDownloadDelay time.Duration `yaml:"hide_download_delay"`
	MaxResponse       int64         `yaml:"max_response"`
	PlainText         string        `yaml:"plain_text"` // text | markdown
}

// BrowserConfig configures the Chrome used by the probe command.
type BrowserConfig struct {
	Remote  string `yaml:"remote"`
	Headful bool   `yaml:"headful"`
	Stealth bool   `yaml:"stealth"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize reports whether html downloads are sanitised.
func (s ServerConfig) Sanitize() bool { return s.SanitizeHTML == nil || *s.SanitizeHTML }

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":9980"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "clipboard.db"
	}
	if c.Server.MaxBody <= 0 {
		c.Server.MaxBody = 64 << 20
	}
	if c.Server.Retention <= 0 {
		c.Server.Retention = time.Hour
	}
	if c.Server.Compression == "" {
		c.Server.Compression = "zstd"
	}
	if c.Server.RateLimit.Window <= 0 {
		c.Server.RateLimit.Window = time.Minute
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = 20 * time.Second
	}
	if c.Client.GraceWindow <= 0 {
		c.Client.GraceWindow = 150 * time.Millisecond
	}
	if c.Client.HideDownloadDelay <= 0 {
		c.Client.HideDownloadDelay = 15 * time.Second
	}
	if c.Client.MaxResponse <= 0 {
		c.Client.MaxResponse = 64 << 20
	}
	if c.Client.PlainText == "" {
		c.Client.PlainText = "text"
	}
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.Server.Compression {
	case "none", "zstd", "lz4":
	default:
		return fmt.Errorf("config: unknown server.compression %q", c.Server.Compression)
	}
	if c.Server.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("config: server.rate_limit.max_requests must be >= 0")
	}
	switch c.Client.PlainText {
	case "text", "markdown":
	default:
		return fmt.Errorf("config: unknown client.plain_text %q", c.Client.PlainText)
	}
	return nil
}
