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

const envPrefix = "NEUROLENS_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if NEUROLENS_CONFIG is set
//  3. env (prefix NEUROLENS_)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// NEUROLENS_AUDIO_BLOCK_SIZE -> audio_block_size (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxSessions < 1:
		return fmt.Errorf("%w: max_sessions must be at least 1", ErrInvalidConfig)
	case c.DisplayRefreshHz < 1:
		return fmt.Errorf("%w: display_refresh_hz must be positive", ErrInvalidConfig)
	case c.AudioBlockSize < 1:
		return fmt.Errorf("%w: audio_block_size must be positive", ErrInvalidConfig)
	case c.AudioSampleRate < 1:
		return fmt.Errorf("%w: audio_sample_rate must be positive", ErrInvalidConfig)
	}
	if c.AnalysisEndpoint != "" {
		if _, err := EndpointsFor(c.AnalysisEndpoint); err != nil {
			return err
		}
	}
	return nil
}
