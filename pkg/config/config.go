// Package config loads the resolver's YAML configuration.
//
// Values are layered: Default, then the file, then environment overrides.
// The result is checked with Validate before use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/projection"
	"github.com/dd0wney/cluso-district/pkg/topology"
	"github.com/dd0wney/cluso-district/pkg/units"
	"github.com/dd0wney/cluso-district/pkg/validation"
)

// Environment variables read by ApplyEnv.
const (
	EnvTolerance = "DISTRICT_TOLERANCE"
	EnvWorkers   = "DISTRICT_WORKERS"
	EnvLogLevel  = "LOG_LEVEL"
)

// Junction id schemes.
const (
	IDsDeterministic = "deterministic"
	IDsRandom        = "random"
)

// Config is the top-level configuration document.
type Config struct {
	Tolerance units.Length `yaml:"tolerance"`
	// Units is the unit imported GeoJSON networks are converted into.
	Units       units.Unit `yaml:"units"`
	JunctionIDs string     `yaml:"junction_ids"`
	Index       string     `yaml:"index"`
	Workers     int        `yaml:"workers"`
	LogLevel    string     `yaml:"log_level"`
	// Location and ReferencePoint override the model's anchor when set.
	Location       *projection.Location `yaml:"location,omitempty"`
	ReferencePoint []float64            `yaml:"reference_point,omitempty"`
	Output         OutputConfig         `yaml:"output"`
}

// OutputConfig selects where artifacts go. S3 wins over Dir when a bucket is set.
type OutputConfig struct {
	Dir      string   `yaml:"dir"`
	Compress bool     `yaml:"compress"`
	S3       S3Config `yaml:"s3"`
}

// S3Config addresses an S3 (or S3-compatible) bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint,omitempty"`
	// PathStyle is needed by most S3-compatible stores.
	PathStyle bool `yaml:"path_style,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Tolerance:   topology.DefaultTolerance,
		Units:       units.Meters,
		JunctionIDs: IDsDeterministic,
		Index:       string(topology.IndexLinear),
		Workers:     4,
		LogLevel:    "info",
		Output: OutputConfig{
			Dir: "out",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults without validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvTolerance); v != "" {
		tol, err := ParseLength(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTolerance, err)
		}
		c.Tolerance = tol
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// ParseLength parses "<value>" (meters) or "<value> <unit>", e.g. "5 Millimeters".
func ParseLength(s string) (units.Length, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return units.Length{}, fmt.Errorf("invalid length %q", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return units.Length{}, fmt.Errorf("invalid length %q: %w", s, err)
	}
	u := units.Meters
	if len(fields) == 2 {
		if u, err = units.Parse(fields[1]); err != nil {
			return units.Length{}, err
		}
	}
	return units.NewLength(v, u), nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("config").
		PositiveFloat("tolerance.value", c.Tolerance.Value).
		Custom("tolerance.unit", func() error { return validUnit(c.Tolerance.Unit) }).
		Custom("units", func() error { return validUnit(c.Units) }).
		OneOf("junction_ids", c.JunctionIDs, []string{IDsDeterministic, IDsRandom}).
		OneOf("index", c.Index, []string{string(topology.IndexLinear), string(topology.IndexGrid)}).
		RangeInt("workers", c.Workers, 1, 1024).
		OneOf("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"})

	cv.When(c.Location != nil, func(cv *validation.ConfigValidator) {
		cv.RangeFloat("location.latitude", c.Location.Latitude, -90, 90).
			RangeFloat("location.longitude", c.Location.Longitude, -180, 180)
	})
	cv.When(c.ReferencePoint != nil, func(cv *validation.ConfigValidator) {
		cv.Custom("reference_point", func() error {
			if len(c.ReferencePoint) != 2 {
				return fmt.Errorf("want [x, y], got %d values", len(c.ReferencePoint))
			}
			return nil
		})
	})
	cv.When(c.Output.S3.Bucket != "", func(cv *validation.ConfigValidator) {
		cv.Required("output.s3.region", c.Output.S3.Region)
	})
	cv.When(c.Output.S3.Bucket == "", func(cv *validation.ConfigValidator) {
		cv.Required("output.dir", c.Output.Dir)
	})
	return cv.Validate()
}

func validUnit(u units.Unit) error {
	if !u.Valid() {
		return fmt.Errorf("unknown length unit %q", u)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Reference returns the configured reference point, if any.
func (c *Config) Reference() (orb.Point, bool) {
	if len(c.ReferencePoint) != 2 {
		return orb.Point{}, false
	}
	return orb.Point{c.ReferencePoint[0], c.ReferencePoint[1]}, true
}

// ResolverOptions builds topology options from the configuration.
func (c *Config) ResolverOptions() topology.Options {
	opts := topology.Options{
		Tolerance: c.Tolerance,
		Index:     topology.IndexStrategy(c.Index),
		IDs:       topology.DeterministicIDs{},
	}
	if c.JunctionIDs == IDsRandom {
		opts.IDs = topology.RandomIDs{}
	}
	return opts
}
