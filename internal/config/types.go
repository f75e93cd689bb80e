package config

import "time"

// Config represents the complete hookgate configuration.
type Config struct {
	Service  ServiceConfig     `yaml:"service"`
	State    StateConfig       `yaml:"state"`
	Webhooks WebhooksConfig    `yaml:"webhooks"`
	Tokens   map[string]string `yaml:"tokens,omitempty"`

	// Path is the absolute path the config was loaded from.
	Path string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// WebhooksConfig defines webhook listener settings.
type WebhooksConfig struct {
	Listen      string         `yaml:"listen"`
	MetricsPath string         `yaml:"metrics_path,omitempty"`
	Replay      ReplayConfig   `yaml:"replay"`
	Sources     []SourceConfig `yaml:"sources"`
}

// ReplayConfig selects the seen-signature store.
type ReplayConfig struct {
	// Backend is one of none, memory, redis, sqlite.
	Backend    string `yaml:"backend"`
	RedisURL   string `yaml:"redis_url,omitempty"`
	MaxEntries int    `yaml:"max_entries,omitempty"`
}

// SourceConfig defines one third-party webhook sender.
type SourceConfig struct {
	Name string `yaml:"name"`

	// Secret is the shared HMAC secret. Usually "${ENV_VAR}".
	Secret string `yaml:"secret,omitempty"`

	// SecretRef names an entry in tokens (preferred over Secret).
	SecretRef string `yaml:"secret_ref,omitempty"`

	SignatureHeader string        `yaml:"signature_header,omitempty"`
	Tolerance       time.Duration `yaml:"tolerance,omitempty"`
	MaxBodySize     string        `yaml:"max_body_size,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "hookgate",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/state.db",
		},
		Webhooks: WebhooksConfig{
			Listen:      "127.0.0.1:8081",
			MetricsPath: "/metrics",
			Replay: ReplayConfig{
				Backend: "memory",
			},
		},
		Tokens: make(map[string]string),
	}
}

// Source defaults.
const (
	DefaultSignatureHeader = "X-Webhook-Signature"
	DefaultTolerance       = 30 * time.Second
)
