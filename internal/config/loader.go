package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, interpolates and validates configuration from a file. If path
// is a directory, config.yaml inside it is used. When a .checksums manifest
// sits next to the file, the file must match it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	integrity, err := VerifyIntegrity(absPath)
	if err != nil {
		return nil, err
	}
	if !integrity.Passed {
		return nil, fmt.Errorf("config integrity check failed: %s", strings.Join(integrity.Errors, "; "))
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Path = absPath
	return cfg, nil
}

// Parse decodes YAML config bytes on top of Defaults, interpolating ${VAR}
// references from the environment first.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolateEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tokens == nil {
		cfg.Tokens = make(map[string]string)
	}
	for i := range cfg.Webhooks.Sources {
		src := &cfg.Webhooks.Sources[i]
		if src.SignatureHeader == "" {
			src.SignatureHeader = DefaultSignatureHeader
		}
		if src.Tolerance == 0 {
			src.Tolerance = DefaultTolerance
		}
	}
}

// interpolateEnv replaces ${VAR} with its environment value. Unset variables
// are left in place so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	wh := cfg.Webhooks
	if wh.Listen == "" {
		return fmt.Errorf("webhooks.listen is required")
	}
	if wh.MetricsPath != "" && !strings.HasPrefix(wh.MetricsPath, "/") {
		return fmt.Errorf("webhooks.metrics_path must start with / (got %q)", wh.MetricsPath)
	}

	switch wh.Replay.Backend {
	case "", "none", "memory", "sqlite":
	case "redis":
		if wh.Replay.RedisURL == "" {
			return fmt.Errorf("webhooks.replay.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("webhooks.replay.backend must be one of: none, memory, redis, sqlite (got %q)", wh.Replay.Backend)
	}
	if wh.Replay.MaxEntries < 0 {
		return fmt.Errorf("webhooks.replay.max_entries must not be negative")
	}

	seen := make(map[string]bool, len(wh.Sources))
	for i, src := range wh.Sources {
		field := fmt.Sprintf("webhooks.sources[%d]", i)
		if src.Name == "" {
			return fmt.Errorf("%s.name is required", field)
		}
		if strings.ContainsAny(src.Name, "/ ") {
			return fmt.Errorf("%s.name %q must not contain slashes or spaces", field, src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("%s.name %q is duplicated", field, src.Name)
		}
		seen[src.Name] = true

		if src.Tolerance < 0 {
			return fmt.Errorf("source %q: tolerance must not be negative", src.Name)
		}

		secret, err := cfg.ResolveSecret(src)
		if err != nil {
			return err
		}
		if m := envVarPattern.FindStringSubmatch(secret); m != nil {
			return fmt.Errorf("source %q: environment variable ${%s} is not set", src.Name, m[1])
		}
	}

	return nil
}

// ResolveSecret returns the secret for src. SecretRef takes precedence over
// Secret. The value is never included in errors.
func (c *Config) ResolveSecret(src SourceConfig) (string, error) {
	secret := src.Secret
	if src.SecretRef != "" {
		resolved, ok := c.Tokens[src.SecretRef]
		if !ok {
			return "", fmt.Errorf("source %q: secret_ref %q not found in tokens", src.Name, src.SecretRef)
		}
		secret = resolved
	}
	if secret == "" {
		return "", fmt.Errorf("source %q: no secret or secret_ref configured", src.Name)
	}
	return secret, nil
}
