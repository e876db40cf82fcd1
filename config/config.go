// Package config holds the settings the optimizer and its command line read.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"mit.edu/dsg/physopt/common"
)

// OptimizerConfig controls the physical rewrites.
type OptimizerConfig struct {
	// RepartitionSorts turns a global sort over a coalesce into per-partition
	// sorts followed by an order-preserving merge.
	RepartitionSorts bool `yaml:"repartition_sorts"`
	// BoundedOrderPreservingVariants allows replacing exchanges with their
	// order-preserving variants for bounded inputs too, when doing so removes
	// a sort. Unbounded inputs always get them.
	BoundedOrderPreservingVariants bool `yaml:"bounded_order_preserving_variants"`
}

// LoggingConfig selects the logger built by the logging package.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validFormats = map[string]bool{"console": true, "json": true}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Optimizer: OptimizerConfig{
			RepartitionSorts:               true,
			BoundedOrderPreservingVariants: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Parse reads a YAML document over the defaults. Keys absent from the
// document keep their default values.
func Parse(doc []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(doc, cfg); err != nil {
		return nil, common.NewPlanError(common.ConfigError, "malformed config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(doc)
}

func (c *Config) Validate() error {
	if !validLevels[c.Logging.Level] {
		return common.NewPlanError(common.ConfigError, "unknown log level %q", c.Logging.Level)
	}
	if !validFormats[c.Logging.Format] {
		return common.NewPlanError(common.ConfigError, "unknown log format %q", c.Logging.Format)
	}
	return nil
}
