// Package config loads the typegraph.yaml configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/typegraph/internal/typegraph"
)

// Config is the complete typegraph configuration.
type Config struct {
	Schema      SchemaConfig `yaml:"schema"`
	Attachments []Attachment `yaml:"attachments"`
	Server      ServerConfig `yaml:"server"`
	OTel        OTelConfig   `yaml:"otel"`
	Log         LogConfig    `yaml:"log"`
}

// SchemaConfig selects the SDL sources and how the type graph is resolved.
type SchemaConfig struct {
	// Paths are glob patterns (** supported) or directories holding .graphql files.
	Paths []string `yaml:"paths"`
	// Strict rejects incompatible field redefinitions instead of keeping the first one.
	Strict           bool   `yaml:"strict"`
	QueryType        string `yaml:"queryType"`
	MutationType     string `yaml:"mutationType"`
	SubscriptionType string `yaml:"subscriptionType"`
	Description      string `yaml:"description"`
}

// Attachment adds every interface to every implementer after the SDL is loaded.
type Attachment struct {
	Interfaces   []string `yaml:"interfaces"`
	Implementers []string `yaml:"implementers"`
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	Path          string        `yaml:"path"`
	Pretty        bool          `yaml:"pretty"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxBodyBytes  int64         `yaml:"maxBodyBytes"`
	Introspection bool          `yaml:"introspection"`
	GraphiQL      bool          `yaml:"graphiql"`
	CORSOrigins   []string      `yaml:"corsOrigins"`
	// Watch rebuilds the schema when SDL files change.
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
	Metrics       bool          `yaml:"metrics"`
	MetricsPath   string        `yaml:"metricsPath"`
}

// OTelConfig configures trace export. An empty endpoint disables export.
type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schema: SchemaConfig{
			Paths:  []string{"schema"},
			Strict: true,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			Path:          "/graphql",
			Timeout:       10 * time.Second,
			MaxBodyBytes:  1 << 20,
			Introspection: true,
			GraphiQL:      true,
			WatchDebounce: 200 * time.Millisecond,
			Metrics:       true,
			MetricsPath:   "/metrics",
		},
		OTel: OTelConfig{
			Service: "typegraph",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Schema.Paths) == 0 {
		return fmt.Errorf("schema.paths is required")
	}
	for i, a := range c.Attachments {
		if len(a.Interfaces) == 0 || len(a.Implementers) == 0 {
			return fmt.Errorf("attachments[%d]: interfaces and implementers are required", i)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.Path == "" || c.Server.Path[0] != '/' {
		return fmt.Errorf("server.path must start with '/'")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.maxBodyBytes must not be negative")
	}
	if c.Server.Metrics && (c.Server.MetricsPath == "" || c.Server.MetricsPath == c.Server.Path) {
		return fmt.Errorf("server.metricsPath must be set and differ from server.path")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// RegistryOptions returns the registry options selected by the schema section.
func (c *Config) RegistryOptions() []typegraph.Option {
	opts := []typegraph.Option{typegraph.WithStrict(c.Schema.Strict)}
	if c.Schema.QueryType != "" || c.Schema.MutationType != "" || c.Schema.SubscriptionType != "" {
		opts = append(opts, typegraph.WithRootTypes(c.Schema.QueryType, c.Schema.MutationType, c.Schema.SubscriptionType))
	}
	if c.Schema.Description != "" {
		opts = append(opts, typegraph.WithDescription(c.Schema.Description))
	}
	return opts
}

// Attach registers every configured attachment on reg.
func (c *Config) Attach(reg *typegraph.Registry) error {
	for i, a := range c.Attachments {
		if err := reg.RegisterInterfaces(a.Interfaces, a.Implementers); err != nil {
			return fmt.Errorf("attachments[%d]: %w", i, err)
		}
	}
	return nil
}
