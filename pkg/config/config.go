// Package config loads the editor settings from a YAML file. Every field has
// a default, so a missing file or a partial file is fine.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/chazu/stagehand/pkg/placement"
	"github.com/goccy/go-yaml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "STAGEHAND_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "stagehand.yaml"

// Persistence drivers.
const (
	DriverSQLite = "sqlite"
	DriverHTTP   = "http"
	DriverNone   = "none"
)

// Placement holds footprint and collision tolerances.
type Placement struct {
	DefaultRadius float64             `yaml:"default_radius"`
	Clearance     float64             `yaml:"clearance"`
	MinThreshold  float64             `yaml:"min_threshold"`
	FloorEpsilon  float64             `yaml:"floor_epsilon"`
	DefaultHeight float64             `yaml:"default_height"`
	StackKeywords map[string][]string `yaml:"stack_keywords"`
}

type Snap struct {
	Increment float64 `yaml:"increment"` // 0 disables snapping
}

type Rotate struct {
	DegreesPerPixel float64 `yaml:"degrees_per_pixel"`
}

type Venue struct {
	Margin float64 `yaml:"margin"`
}

// Persistence selects and configures the persistence collaborator.
type Persistence struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
	Timeout    string `yaml:"timeout"`
	Workers    int    `yaml:"workers"`
}

// TimeoutDuration parses Timeout.
func (p Persistence) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("persistence timeout: %w", err)
	}
	return d, nil
}

type Render struct {
	MeshCells int `yaml:"mesh_cells"`
}

// Config is the full settings file.
type Config struct {
	Placement   Placement   `yaml:"placement"`
	Snap        Snap        `yaml:"snap"`
	Rotate      Rotate      `yaml:"rotate"`
	Venue       Venue       `yaml:"venue"`
	Persistence Persistence `yaml:"persistence"`
	Render      Render      `yaml:"render"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Placement: Placement{
			DefaultRadius: placement.DefaultRadius,
			Clearance:     placement.DefaultClearance,
			MinThreshold:  placement.DefaultMinThreshold,
			FloorEpsilon:  placement.DefaultFloorEpsilon,
			DefaultHeight: 0.5,
			StackKeywords: cloneKeywords(placement.DefaultStackKeywords),
		},
		Rotate:      Rotate{DegreesPerPixel: 0.5},
		Venue:       Venue{Margin: 0.05},
		Persistence: Persistence{Driver: DriverSQLite, SQLitePath: "data/stagehand.db", Timeout: "10s", Workers: 4},
		Render:      Render{MeshCells: 64},
	}
}

// Path returns the config path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path over the defaults. A missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	// A keyword map in the file replaces the defaults rather than merging.
	cfg.Placement.StackKeywords = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Placement.StackKeywords == nil {
		cfg.Placement.StackKeywords = cloneKeywords(placement.DefaultStackKeywords)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Placement.DefaultRadius <= 0 {
		errs = append(errs, fmt.Errorf("placement.default_radius must be positive"))
	}
	if c.Placement.Clearance < 0 {
		errs = append(errs, fmt.Errorf("placement.clearance must not be negative"))
	}
	if c.Snap.Increment < 0 {
		errs = append(errs, fmt.Errorf("snap.increment must not be negative"))
	}
	if c.Venue.Margin < 0 {
		errs = append(errs, fmt.Errorf("venue.margin must not be negative"))
	}
	if c.Persistence.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("persistence.max_retries must not be negative"))
	}
	switch c.Persistence.Driver {
	case DriverSQLite, DriverNone:
	case DriverHTTP:
		if c.Persistence.BaseURL == "" {
			errs = append(errs, fmt.Errorf("persistence.base_url is required for the http driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("persistence.driver %q is not one of sqlite, http, none", c.Persistence.Driver))
	}
	if _, err := c.Persistence.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func cloneKeywords(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// FootprintResolver builds a footprint resolver from the placement settings.
func (c Config) FootprintResolver() *placement.FootprintResolver {
	fr := placement.NewFootprintResolver()
	fr.DefaultRadius = c.Placement.DefaultRadius
	if len(c.Placement.StackKeywords) > 0 {
		fr.Keywords = c.Placement.StackKeywords
	}
	return fr
}
