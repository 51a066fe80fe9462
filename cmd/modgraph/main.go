package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/coupling"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/detect"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	neo4jrepo "github.com/efebarandurmaz/modgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/pipeline"
	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
	"github.com/efebarandurmaz/modgraph/internal/report"
	"github.com/efebarandurmaz/modgraph/internal/resolve"
)

var errGatesFailed = errors.New("quality gates failed")

// analyzeFlags holds command-line overrides for an analysis run.
type analyzeFlags struct {
	files         []string
	deps          string
	exclude       string
	tsConfig      string
	webpackConfig string
	requireConfig string
	extensions    []string
	strategies    []string
	output        string
	format        string
	threshold     int
	jsonReport    bool
}

// inputFlags are shared by the commands that work on saved files.
type inputFlags struct {
	deps      string
	partition string
	shape     string
	format    string
	threshold int
	rebalance bool
	stats     bool
}

func (f *inputFlags) register(cmd *cobra.Command, format, formatUsage string) {
	cmd.Flags().StringVar(&f.deps, "deps", "", "Dependency graph JSON")
	cmd.Flags().StringVar(&f.partition, "partition", "", "Partition JSON")
	cmd.Flags().StringVar(&f.shape, "shape", "auto", "Partition shape (auto|communities|labelling|sets)")
	cmd.Flags().StringVar(&f.format, "format", format, formatUsage)
	_ = cmd.MarkFlagRequired("deps")
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "modgraph",
		Short:         "Measure and improve module boundaries of a JavaScript/TypeScript codebase",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/modgraph.yaml", "Config file path")

	var af analyzeFlags
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Resolve dependencies, detect communities and compare coupling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd, configPath, af)
		},
	}
	analyzeCmd.Flags().StringSliceVar(&af.files, "files", nil, "Paths to files or directories to scan")
	analyzeCmd.Flags().StringVar(&af.deps, "deps", "", "Read dependencies from a saved JSON file instead of running madge")
	analyzeCmd.Flags().StringVar(&af.exclude, "exclude", "", "RegExp for excluding modules")
	analyzeCmd.Flags().StringVar(&af.tsConfig, "ts-config", "", "TypeScript config for resolving aliased modules")
	analyzeCmd.Flags().StringVar(&af.webpackConfig, "webpack-config", "", "Webpack config for resolving aliased modules")
	analyzeCmd.Flags().StringVar(&af.requireConfig, "require-config", "", "RequireJS config for resolving aliased modules")
	analyzeCmd.Flags().StringSliceVar(&af.extensions, "extensions", nil, "Valid file extensions used to find files in directories")
	analyzeCmd.Flags().StringSliceVar(&af.strategies, "strategies", nil, "Strategies to run (current and detector names)")
	analyzeCmd.Flags().StringVar(&af.output, "output", "", "Output directory")
	analyzeCmd.Flags().StringVar(&af.format, "format", "", "Output format for communities and metrics (json|yaml)")
	analyzeCmd.Flags().IntVar(&af.threshold, "threshold", 0, "Outer exports at which a file moves to Shared")
	analyzeCmd.Flags().BoolVar(&af.jsonReport, "json", false, "Print the run summary as JSON")

	var mf inputFlags
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute coupling metrics for a supplied partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.OutOrStdout(), mf)
		},
	}
	mf.register(metricsCmd, "json", "Output format (json|yaml)")
	metricsCmd.Flags().IntVar(&mf.threshold, "threshold", coupling.DefaultSharedThreshold, "Outer exports at which a file moves to Shared")
	metricsCmd.Flags().BoolVar(&mf.rebalance, "rebalance", false, "Move over-exported files to Shared before measuring")
	_ = metricsCmd.MarkFlagRequired("partition")

	var rf inputFlags
	rebalanceCmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Move over-exported files of a partition into Shared",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalance(cmd.OutOrStdout(), rf)
		},
	}
	rf.register(rebalanceCmd, "json", "Output format (json|yaml)")
	rebalanceCmd.Flags().IntVar(&rf.threshold, "threshold", coupling.DefaultSharedThreshold, "Outer exports at which a file moves to Shared")
	_ = rebalanceCmd.MarkFlagRequired("partition")

	var ef inputFlags
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render the dependency graph as DOT, Mermaid or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), ef)
		},
	}
	ef.register(exportCmd, "dot", "Export format (dot|mermaid|json)")
	exportCmd.Flags().BoolVar(&ef.stats, "stats", false, "Print graph statistics instead of the graph")

	detectorsCmd := &cobra.Command{
		Use:   "detectors",
		Short: "List available community detectors",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Available strategies:")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %-12s %s\n", pipeline.Current, "group by top-level directory (baseline, not rebalanced)")
			for _, name := range detect.DefaultRegistry().Names() {
				fmt.Fprintf(w, "  %s\n", name)
			}
		},
	}

	rootCmd.AddCommand(analyzeCmd, metricsCmd, rebalanceCmd, exportCmd, detectorsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errGatesFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, configPath string, af analyzeFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, cmd, af)
	if err := cfg.Check(); err != nil {
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.Log))

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	format, err := report.ParseFormat(cfg.Analysis.Format)
	if err != nil {
		return err
	}

	var repo graph.Repository
	if cfg.Graph.URI != "" {
		n, err := neo4jrepo.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			return fmt.Errorf("connecting to graph store: %w", err)
		}
		defer n.Close(context.Background())
		repo = n
	}

	var promMetrics *observability.Metrics
	if cfg.Metrics.Textfile != "" {
		promMetrics = observability.NewMetrics()
	}

	res, err := buildResolver(cfg, af)
	if err != nil {
		return err
	}

	runner := pipeline.New(pipeline.Options{
		Strategies:        cfg.Analysis.Strategies,
		SharedThreshold:   cfg.Analysis.SharedThreshold,
		FilesPerCommunity: cfg.Detect.FilesPerCommunity,
		Detect: detect.Config{
			Resolution:    cfg.Detect.Resolution,
			Seed:          cfg.Detect.Seed,
			MaxIterations: cfg.Detect.MaxIterations,
		},
		Gates:      qualitygate.BuildPipeline(&cfg.Gates),
		Emitter:    report.NewEmitter(cfg.Analysis.OutputDir, format),
		Repository: repo,
		Metrics:    promMetrics,
	})

	result, err := runner.Run(ctx, res)
	if err != nil {
		return err
	}

	if promMetrics != nil {
		if err := promMetrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("metrics textfile not written", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	w := cmd.OutOrStdout()
	if af.jsonReport {
		data, err := result.Metrics.JSON()
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		fmt.Fprintln(w, string(data))
	} else {
		for _, path := range result.Written {
			fmt.Fprintf(w, "  wrote %s\n", path)
		}
		result.Metrics.PrintSummary(w)
		for _, sr := range result.Strategies {
			if sr.Gates != nil {
				fmt.Fprint(w, qualitygate.FormatReport(sr.Gates))
			}
		}
	}

	if result.Failed() {
		fmt.Fprintln(os.Stderr, "Error: quality gates failed")
		return errGatesFailed
	}
	return nil
}

// applyOverrides copies explicitly set flags onto cfg.
func applyOverrides(cfg *config.Config, cmd *cobra.Command, af analyzeFlags) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("strategies") {
		cfg.Analysis.Strategies = af.strategies
	}
	if changed("output") {
		cfg.Analysis.OutputDir = af.output
	}
	if changed("format") {
		cfg.Analysis.Format = af.format
	}
	if changed("threshold") {
		cfg.Analysis.SharedThreshold = af.threshold
	}
	if changed("exclude") {
		cfg.Resolver.Exclude = af.exclude
	}
	if changed("ts-config") {
		cfg.Resolver.TSConfig = af.tsConfig
	}
	if changed("webpack-config") {
		cfg.Resolver.WebpackConfig = af.webpackConfig
	}
	if changed("require-config") {
		cfg.Resolver.RequireConfig = af.requireConfig
	}
	if changed("extensions") {
		cfg.Resolver.Extensions = af.extensions
	}
}

func buildResolver(cfg *config.Config, af analyzeFlags) (resolve.Resolver, error) {
	if af.deps != "" {
		return resolve.FileResolver{Path: af.deps}, nil
	}
	if len(af.files) == 0 {
		return nil, fmt.Errorf("%w: pass --files or --deps", resolve.ErrNoFiles)
	}
	return resolve.NewMadge(af.files, resolve.MadgeOptions{
		Command:       cfg.Resolver.Command,
		Exclude:       cfg.Resolver.Exclude,
		TSConfig:      cfg.Resolver.TSConfig,
		WebpackConfig: cfg.Resolver.WebpackConfig,
		RequireConfig: cfg.Resolver.RequireConfig,
		Extensions:    cfg.Resolver.Extensions,
	}), nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loadInputs(in inputFlags) (*depgraph.Graph, *community.Partition, error) {
	g, err := depgraph.Load(in.deps)
	if err != nil {
		return nil, nil, err
	}
	s, err := community.ParseShape(in.shape)
	if err != nil {
		return nil, nil, err
	}
	p, err := community.Load(in.partition, s)
	if err != nil {
		return nil, nil, err
	}
	return g, p, nil
}

func runMetrics(w io.Writer, in inputFlags) error {
	f, err := report.ParseFormat(in.format)
	if err != nil {
		return err
	}
	g, p, err := loadInputs(in)
	if err != nil {
		return err
	}
	if in.rebalance {
		moved, err := coupling.Relocate(p, g, in.threshold)
		if err != nil {
			return fmt.Errorf("rebalance: %w", err)
		}
		slog.Info("rebalanced partition", "moved", len(moved))
	}
	data, err := report.Encode(f, coupling.Compute(p, g))
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func runRebalance(w io.Writer, in inputFlags) error {
	f, err := report.ParseFormat(in.format)
	if err != nil {
		return err
	}
	g, p, err := loadInputs(in)
	if err != nil {
		return err
	}
	moved, err := coupling.Relocate(p, g, in.threshold)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}
	slog.Info("rebalanced partition", "moved", len(moved), "files", moved)
	data, err := report.Encode(f, p)
	if err != nil {
		return fmt.Errorf("encoding partition: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func runExport(w io.Writer, in inputFlags) error {
	g, err := depgraph.Load(in.deps)
	if err != nil {
		return err
	}
	if in.stats {
		fmt.Fprint(w, depgraph.FormatStats(depgraph.Analyze(g)))
		return nil
	}

	var clusters depgraph.Clusters
	if in.partition != "" {
		s, err := community.ParseShape(in.shape)
		if err != nil {
			return err
		}
		p, err := community.Load(in.partition, s)
		if err != nil {
			return err
		}
		clusters = p
	}

	switch in.format {
	case "dot":
		fmt.Fprint(w, depgraph.ExportDOT(g, clusters))
	case "mermaid":
		fmt.Fprint(w, depgraph.ExportMermaid(g, clusters))
	case "json":
		data, err := depgraph.ExportJSON(g)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	default:
		return fmt.Errorf("unknown export format %q (want dot, mermaid or json)", in.format)
	}
	return nil
}
