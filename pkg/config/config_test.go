package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/projection"
	"github.com/dd0wney/cluso-district/pkg/topology"
	"github.com/dd0wney/cluso-district/pkg/units"
)

const sample = `
tolerance:
  value: 5
  unit: Millimeters
units: Feet
junction_ids: random
index: grid
workers: 8
log_level: debug
location:
  latitude: 39.74
  longitude: -104.99
reference_point: [100, 250]
output:
  compress: true
  s3:
    bucket: district-artifacts
    prefix: runs/2026
    region: us-west-2
`

func noEnv(string) string { return "" }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, topology.DefaultTolerance, cfg.Tolerance)
	assert.Equal(t, logging.InfoLevel, cfg.Level())

	opts := cfg.ResolverOptions()
	assert.Equal(t, topology.IndexLinear, opts.Index)
	assert.IsType(t, topology.DeterministicIDs{}, opts.IDs)

	_, ok := cfg.Reference()
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, units.NewLength(5, units.Millimeters), cfg.Tolerance)
	assert.Equal(t, units.Feet, cfg.Units)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, logging.DebugLevel, cfg.Level())
	require.NotNil(t, cfg.Location)
	assert.Equal(t, 39.74, cfg.Location.Latitude)

	ref, ok := cfg.Reference()
	assert.True(t, ok)
	assert.Equal(t, orb.Point{100, 250}, ref)

	assert.True(t, cfg.Output.Compress)
	assert.Equal(t, "district-artifacts", cfg.Output.S3.Bucket)
	assert.Equal(t, "runs/2026", cfg.Output.S3.Prefix)
	// untouched keys keep their defaults
	assert.Equal(t, "out", cfg.Output.Dir)

	opts := cfg.ResolverOptions()
	assert.Equal(t, topology.IndexGrid, opts.Index)
	assert.IsType(t, topology.RandomIDs{}, opts.IDs)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("workers: [not, a, number]"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTolerance: "0.5 Centimeters",
		EnvWorkers:   "2",
		EnvLogLevel:  "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, units.NewLength(0.5, units.Centimeters), cfg.Tolerance)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, logging.WarnLevel, cfg.Level())

	cfg = Default()
	require.NoError(t, cfg.ApplyEnv(noEnv))
	assert.Equal(t, Default(), cfg)

	bad := Default()
	assert.Error(t, bad.ApplyEnv(func(k string) string {
		if k == EnvWorkers {
			return "many"
		}
		return ""
	}))
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in      string
		want    units.Length
		wantErr bool
	}{
		{"0.01", units.NewLength(0.01, units.Meters), false},
		{"5 millimeters", units.NewLength(5, units.Millimeters), false},
		{" 2  Feet ", units.NewLength(2, units.Feet), false},
		{"", units.Length{}, true},
		{"abc", units.Length{}, true},
		{"1 furlong", units.Length{}, true},
		{"1 2 3", units.Length{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLength(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero tolerance", func(c *Config) { c.Tolerance.Value = 0 }, "tolerance.value"},
		{"tolerance unit", func(c *Config) { c.Tolerance.Unit = "cubits" }, "tolerance.unit"},
		{"units", func(c *Config) { c.Units = "leagues" }, "units"},
		{"junction ids", func(c *Config) { c.JunctionIDs = "sequential" }, "junction_ids"},
		{"index", func(c *Config) { c.Index = "rtree" }, "index"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"latitude", func(c *Config) { c.Location = &projection.Location{Latitude: 95} }, "location.latitude"},
		{"reference point", func(c *Config) { c.ReferencePoint = []float64{1} }, "reference_point"},
		{"s3 region", func(c *Config) { c.Output.S3.Bucket = "b" }, "output.s3.region"},
		{"output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config."+tt.field)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Workers = -1
	cfg.Index = "rtree"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "district.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv(EnvWorkers, "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, units.Feet, cfg.Units)

	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o600))
	t.Setenv(EnvWorkers, "")
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
