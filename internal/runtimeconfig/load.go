package runtimeconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file into cfg after expanding environment variables, then
// validates the result. Values missing from the file keep whatever cfg held,
// so callers usually start from DefaultConfig().
func Load(filename string, cfg *Config) error {
	if cfg == nil {
		return errors.New("mesh config: target config is nil")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("mesh config: read %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("mesh config: parse %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("mesh config: %s: %w", filename, err)
	}
	return nil
}

// LoadOrDefault loads filename when it exists and falls back to the defaults
// otherwise.
func LoadOrDefault(filename string) (Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, cfg.Validate()
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err := Load(filename, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
