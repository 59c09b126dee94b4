// Package config handles coldet tool configuration loading and management.
package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config holds all tool settings.
type Config struct {
	Collision CollisionConfig `yaml:"collision"`
	Bench     BenchConfig     `yaml:"bench"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CollisionConfig holds defaults for mesh construction and queries.
type CollisionConfig struct {
	MaxTime      time.Duration `yaml:"max_time"`       // CollidesWith budget, 0 = unbounded
	LeafSize     int           `yaml:"leaf_size"`      // Triangles per tree leaf
	TimeoutAsHit bool          `yaml:"timeout_as_hit"` // Report timed out queries as collisions
}

// BenchConfig holds settings for the bench command.
type BenchConfig struct {
	GridSize   int `yaml:"grid_size"`
	Iterations int `yaml:"iterations"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Collision: CollisionConfig{
			MaxTime:  50 * time.Millisecond,
			LeafSize: 4,
		},
		Bench: BenchConfig{
			GridSize:   32,
			Iterations: 100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Collision.MaxTime < 0 {
		err = multierr.Append(err, fmt.Errorf("collision.max_time must not be negative, got %v", c.Collision.MaxTime))
	}
	if c.Collision.LeafSize < 1 {
		err = multierr.Append(err, fmt.Errorf("collision.leaf_size must be at least 1, got %d", c.Collision.LeafSize))
	}
	if c.Bench.GridSize < 1 {
		err = multierr.Append(err, fmt.Errorf("bench.grid_size must be at least 1, got %d", c.Bench.GridSize))
	}
	if c.Bench.Iterations < 1 {
		err = multierr.Append(err, fmt.Errorf("bench.iterations must be at least 1, got %d", c.Bench.Iterations))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return err
}
