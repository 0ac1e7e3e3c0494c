package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port        int           `env:"HTTP_PORT" envDefault:"8080"`
//	    ChallengeTTL time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// OneOf reports an error naming the variable when value is not in allowed.
func OneOf(name, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of [%s], got %q", name, strings.Join(allowed, ", "), value)
}
