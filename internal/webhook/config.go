package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/hookgate/internal/config"
)

// FromGlobalConfig converts the loaded config into a webhook.Config.
// Resolves secret references and parses max body sizes.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	wc := cfg.Webhooks
	out := Config{
		Listen:      wc.Listen,
		MetricsPath: wc.MetricsPath,
		Sources:     make([]SourceEndpoint, len(wc.Sources)),
	}

	for i, src := range wc.Sources {
		secret, err := cfg.ResolveSecret(src)
		if err != nil {
			return Config{}, err
		}

		maxBodySize, err := parseMaxBodySize(src.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("source %q: invalid max_body_size %q: %w", src.Name, src.MaxBodySize, err)
		}

		out.Sources[i] = SourceEndpoint{
			Name:            src.Name,
			Secret:          secret,
			SignatureHeader: src.SignatureHeader,
			Tolerance:       src.Tolerance,
			MaxBodySize:     maxBodySize,
		}
	}

	return out, nil
}

// parseMaxBodySize parses size strings like "1MB", "512KB", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"KB", 1 << 10},
		{"MB", 1 << 20},
		{"GB", 1 << 30},
	} {
		if strings.HasSuffix(upper, unit.suffix) {
			multiplier = unit.mult
			upper = strings.TrimSuffix(upper, unit.suffix)
			break
		}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}
	if value > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size too large")
	}

	return value * multiplier, nil
}
