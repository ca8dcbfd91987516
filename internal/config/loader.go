package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigPath names the env var pointing at an optional YAML config file.
const EnvConfigPath = "CPRTRACE_CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CPRTRACE_CONFIG is set
//  3. env (prefix CPRTRACE_)
func Load(ctx context.Context) (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	return loadFrom(ctx, path)
}

// LoadFile builds a Config from defaults, the given YAML file, and env
// vars. Used by the config watcher to reload a known path.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	return loadFrom(ctx, path)
}

func loadFrom(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CPRTRACE_ADDR, CPRTRACE_QUEUE_SIZE, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("CPRTRACE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "cprtrace_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.ROSCToleranceMS < 0 {
		return nil, fmt.Errorf("%w: rosc_tolerance_ms must not be negative", ErrInvalidConfig)
	}
	return &cfg, nil
}
