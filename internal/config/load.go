package config

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every error Load returns, so callers can map them to a
// single exit status.
var ErrInvalid = errors.New("invalid configuration")

// Load layers defaults, the config file, the environment and the command
// line overrides, then validates the result.
func Load(explicitPath string, o Overrides) (*Config, error) {
	path, err := Locate(explicitPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	cfg := Default()
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		cfg.Path = path
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}
