// Command district-topology resolves every network of a district model and
// writes the results as GeoJSON feature collections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-district/pkg/config"
	"github.com/dd0wney/cluso-district/pkg/export"
	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/metrics"
	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/parallel"
	"github.com/dd0wney/cluso-district/pkg/sink"
	"github.com/dd0wney/cluso-district/pkg/topology"
)

// errNetworksFailed makes the exit status non-zero when any network fails.
var errNetworksFailed = errors.New("one or more networks failed to resolve")

type options struct {
	modelPath      string
	configPath     string
	outDir         string
	compress       bool
	workers        int
	metricsPath    string
	thermalGeoJSON string
	electricalJSON string
	dryRun         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "district-topology: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("district-topology", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.modelPath, "model", "", "District model document (JSON)")
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.outDir, "out", "", "Output directory (overrides config)")
	fs.BoolVar(&o.compress, "compress", false, "Snappy-compress artifacts")
	fs.IntVar(&o.workers, "workers", 0, "Concurrent resolutions (overrides config)")
	fs.StringVar(&o.metricsPath, "metrics", "", "Write Prometheus metrics to this textfile")
	fs.StringVar(&o.thermalGeoJSON, "thermal-geojson", "", "Add a thermal loop read from GeoJSON")
	fs.StringVar(&o.electricalJSON, "electrical-geojson", "", "Add an electrical network read from GeoJSON")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Resolve and report without writing artifacts")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.modelPath == "" {
		return o, errors.New("-model is required")
	}
	return o, nil
}

func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	} else if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
		cfg.Output.S3 = config.S3Config{}
	}
	if o.compress {
		cfg.Output.Compress = true
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	started := time.Now()
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(stderr, cfg.Level())
	reg := metrics.NewRegistry()

	model, err := network.LoadModel(o.modelPath)
	if err != nil {
		return err
	}
	applyAnchor(model, cfg)
	if err := importNetworks(model, o, cfg); err != nil {
		return err
	}
	if err := model.Validate(); err != nil {
		return fmt.Errorf("model %s: %w", model.ID, err)
	}

	resolver, err := topology.NewResolver(cfg.ResolverOptions(), logger, reg)
	if err != nil {
		return err
	}
	outcomes, err := parallel.ResolveModel(ctx, resolver, model, cfg.Workers, logger)
	if err != nil {
		return err
	}

	var dest sink.Sink = sink.NewMemorySink()
	if !o.dryRun {
		if dest, err = sink.FromConfig(ctx, cfg.Output); err != nil {
			return err
		}
	}
	dest = sink.Instrument(dest, logger, reg)

	written, err := writeArtifacts(ctx, dest, model, outcomes)
	if err != nil {
		return err
	}

	reg.UpdateSystemMetrics(started)
	if o.metricsPath != "" {
		if err := reg.WriteTextfile(o.metricsPath); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Fprintln(stdout, renderSummary(model.ID, outcomes, written, dest.Kind()))
	for _, out := range outcomes {
		if !out.OK() {
			return errNetworksFailed
		}
	}
	return nil
}

// applyAnchor lets the configuration move the model's geographic anchor.
func applyAnchor(m *network.Model, cfg *config.Config) {
	if cfg.Location != nil {
		m.Location = *cfg.Location
	}
	if ref, ok := cfg.Reference(); ok {
		m.ReferencePoint = ref
	}
}

func importNetworks(m *network.Model, o options, cfg *config.Config) error {
	opts := export.ImportOptions{Units: cfg.Units}
	if o.thermalGeoJSON != "" {
		f, err := os.Open(o.thermalGeoJSON)
		if err != nil {
			return err
		}
		defer f.Close()
		loop, err := export.ThermalLoopFromGeoJSON(f, importID(o.thermalGeoJSON), opts)
		if err != nil {
			return fmt.Errorf("%s: %w", o.thermalGeoJSON, err)
		}
		m.ThermalLoops = append(m.ThermalLoops, *loop)
	}
	if o.electricalJSON != "" {
		f, err := os.Open(o.electricalJSON)
		if err != nil {
			return err
		}
		defer f.Close()
		net, err := export.ElectricalNetworkFromGeoJSON(f, importID(o.electricalJSON), opts)
		if err != nil {
			return fmt.Errorf("%s: %w", o.electricalJSON, err)
		}
		m.ElectricalNetworks = append(m.ElectricalNetworks, *net)
	}
	return nil
}

// importID names an imported network after its file.
func importID(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// modelAnchor places every network of m; the reference point stays in model units.
func modelAnchor(m *network.Model) export.Anchor {
	return export.Anchor{
		Location:       m.Location,
		ReferencePoint: m.ReferencePoint,
		Units:          network.UnitOf(m.Units),
	}
}

// artifactName returns where a resolved network is written.
func artifactName(modelID string, out parallel.Outcome) string {
	return path.Join(modelID, out.Variant+"-"+out.NetworkID+".geojson")
}

func writeArtifacts(ctx context.Context, dest sink.Sink, m *network.Model, outcomes []parallel.Outcome) (int, error) {
	written := 0
	a := modelAnchor(m)
	for _, out := range outcomes {
		if !out.OK() {
			continue
		}

		var fc []byte
		var err error
		switch out.Variant {
		case topology.VariantThermal:
			fc, err = export.FeatureCollection(export.ThermalLoopFeatures(out.Thermal, a), a).MarshalJSON()
		case topology.VariantElectrical:
			fc, err = export.FeatureCollection(export.ElectricalNetworkFeatures(out.Radial, a), a).MarshalJSON()
		case topology.VariantRoad:
			fc, err = export.FeatureCollection(export.RoadNetworkFeatures(out.Radial, a), a).MarshalJSON()
		default:
			err = fmt.Errorf("unknown variant %q", out.Variant)
		}
		if err != nil {
			return written, fmt.Errorf("export %s: %w", out.NetworkID, err)
		}

		if err := dest.Write(ctx, artifactName(m.ID, out), fc); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
