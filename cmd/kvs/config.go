package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// driverConfig is the optional on-disk configuration for the CLI driver,
// loaded from a kvs.yaml file in the target data directory if present.
// Configuration parsing is a driver concern, not a core one, so this
// lives in cmd/kvs rather than pkg/kvs.
type driverConfig struct {
	CompactionThreshold int `yaml:"compactionThreshold"`
}

// loadDriverConfig reads kvs.yaml from dir if it exists, returning a zero
// value (no overrides) if it does not.
func loadDriverConfig(dir string) (driverConfig, error) {
	path := dir + "/kvs.yaml"

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return driverConfig{}, nil
		}
		return driverConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg driverConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return driverConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
