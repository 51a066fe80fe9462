// Package pipeline runs a full analysis: resolve the dependency graph,
// partition it with every configured strategy, measure coupling, check
// gates and hand the results to the emitter and repository.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/coupling"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/detect"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	"github.com/efebarandurmaz/modgraph/internal/metrics"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
	"github.com/efebarandurmaz/modgraph/internal/report"
	"github.com/efebarandurmaz/modgraph/internal/resolve"
)

// Current is the baseline strategy grouping files by top directory. It is
// never rebalanced.
const Current = "current"

// Options configures a Runner. Zero-valued optional fields disable the
// matching stage.
type Options struct {
	Strategies        []string
	SharedThreshold   int
	FilesPerCommunity int
	Detect            detect.Config

	Registry   *detect.Registry       // defaults to detect.DefaultRegistry
	Gates      *qualitygate.Pipeline  // optional
	Emitter    *report.Emitter        // optional
	Repository graph.Repository       // optional
	Metrics    *observability.Metrics // optional
	Logger     *slog.Logger
}

// StrategyResult is the outcome of one strategy.
type StrategyResult struct {
	Name      string
	Partition *community.Partition
	Report    *coupling.Report
	Relocated []string
	Gates     *qualitygate.PipelineResult
	Elapsed   time.Duration
}

// Shared returns the number of files in the Shared community.
func (s *StrategyResult) Shared() int {
	if !s.Partition.Has(community.Shared) {
		return 0
	}
	return s.Partition.Size(community.Shared)
}

// Result is the outcome of a run.
type Result struct {
	RunID      string
	Graph      *depgraph.Graph
	Stats      depgraph.Stats
	Strategies []*StrategyResult
	Written    []string
	Metrics    *metrics.RunMetrics
}

// Failed reports whether any strategy failed a blocking gate.
func (r *Result) Failed() bool {
	for _, s := range r.Strategies {
		if s.Gates != nil && s.Gates.Failed() {
			return true
		}
	}
	return false
}

// Strategy returns the result of the named strategy, or nil.
func (r *Result) Strategy(name string) *StrategyResult {
	for _, s := range r.Strategies {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Runner executes analysis runs.
type Runner struct {
	opts Options
	log  *slog.Logger
}

// New returns a runner for opts.
func New(opts Options) *Runner {
	if opts.Registry == nil {
		opts.Registry = detect.DefaultRegistry()
	}
	if opts.SharedThreshold == 0 {
		opts.SharedThreshold = coupling.DefaultSharedThreshold
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = []string{Current, "greedy", "louvain"}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{opts: opts, log: log}
}

// Run resolves the dependency graph and analyses it.
func (r *Runner) Run(ctx context.Context, res resolve.Resolver) (*Result, error) {
	ctx, span := observability.StartStageSpan(ctx, "resolve")
	g, err := res.Resolve(ctx)
	observability.RecordError(span, err)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("resolve dependencies: %w", err)
	}
	return r.Analyze(ctx, g)
}

// Analyze runs every strategy over g. Strategies run concurrently; results
// keep the configured order.
func (r *Runner) Analyze(ctx context.Context, g *depgraph.Graph) (*Result, error) {
	for _, name := range r.opts.Strategies {
		if name == Current {
			continue
		}
		if _, err := r.opts.Registry.Get(name); err != nil {
			return nil, err
		}
	}

	runID := uuid.New().String()
	stats := depgraph.Analyze(g)
	run := metrics.New(runID)
	run.CollectGraph(stats)
	r.log.Info("analysing dependency graph", "run", runID, "files", stats.Files, "edges", stats.Edges,
		"unmodeled", stats.UnmodeledTargets, "strategies", r.opts.Strategies)
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordGraph(stats.Files, stats.Edges)
	}

	results := make([]*StrategyResult, len(r.opts.Strategies))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range r.opts.Strategies {
		eg.Go(func() error {
			sr, err := r.runStrategy(egCtx, g, name)
			if err != nil {
				if r.opts.Metrics != nil {
					r.opts.Metrics.RecordStrategyError(name)
				}
				return fmt.Errorf("strategy %s: %w", name, err)
			}
			results[i] = sr
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, Graph: g, Stats: stats, Strategies: results, Metrics: run}
	for _, sr := range results {
		gates := ""
		if sr.Gates != nil {
			gates = string(sr.Gates.Status)
		}
		run.AddStrategy(sr.Name, sr.Elapsed, sr.Report.Summary, sr.Shared(), gates)
	}

	var errs []string
	if r.opts.Emitter != nil {
		written, err := r.emit(ctx, result)
		if err != nil {
			return nil, err
		}
		result.Written = written
	}
	if r.opts.Repository != nil {
		if err := r.persist(ctx, result); err != nil {
			r.log.Warn("persisting run failed", "run", runID, "error", err)
			errs = append(errs, err.Error())
		}
	}
	run.Finish(errs)
	return result, nil
}

func (r *Runner) runStrategy(ctx context.Context, g *depgraph.Graph, name string) (*StrategyResult, error) {
	ctx, span := observability.StartStrategySpan(ctx, name, g.Len())
	defer span.End()
	start := time.Now()

	p, relocated, err := r.partition(ctx, g, name)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	sr := &StrategyResult{
		Name:      name,
		Partition: p,
		Report:    coupling.Compute(p, g),
		Relocated: relocated,
	}
	if r.opts.Gates != nil && r.opts.Gates.Len() > 0 {
		sr.Gates = r.opts.Gates.Run(&qualitygate.EvalContext{
			Strategy:  name,
			Report:    sr.Report,
			Relocated: relocated,
		})
		observability.RecordGateResult(span, sr.Gates.Failed(), sr.Gates.Summary)
		if r.opts.Metrics != nil {
			for _, gr := range sr.Gates.Gates {
				if gr.Status == qualitygate.GateFailed || gr.Status == qualitygate.GateWarning {
					r.opts.Metrics.RecordGateFailure(name, gr.Name)
				}
			}
		}
	}
	sr.Elapsed = time.Since(start)

	observability.RecordCoupling(span, sr.Report.Summary, len(relocated))
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordStrategy(name, sr.Report, sr.Shared(), sr.Elapsed)
	}
	r.log.Info("strategy finished", "strategy", name,
		"communities", sr.Report.Summary.Communities,
		"outer_connections", sr.Report.Summary.OuterConnections,
		"relocated", len(relocated),
		"elapsed", sr.Elapsed.Round(time.Millisecond))
	return sr, nil
}

// partition builds the strategy's partition. Detected partitions are
// rebalanced; the baseline is not.
func (r *Runner) partition(ctx context.Context, g *depgraph.Graph, name string) (*community.Partition, []string, error) {
	if name == Current {
		return community.GroupByTopDirectory(g.Files()), nil, nil
	}

	d, err := r.opts.Registry.Get(name)
	if err != nil {
		return nil, nil, err
	}
	cfg := r.opts.Detect
	cfg.MinCommunities = detect.MinCommunitiesFor(g.Len(), r.opts.FilesPerCommunity)
	p, err := detect.Run(ctx, d, g, cfg)
	if err != nil {
		return nil, nil, err
	}
	relocated, err := coupling.Relocate(p, g, r.opts.SharedThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("rebalance: %w", err)
	}
	return p, relocated, nil
}

func (r *Runner) emit(ctx context.Context, res *Result) ([]string, error) {
	_, span := observability.StartStageSpan(ctx, "emit")
	defer span.End()

	path, err := r.opts.Emitter.WriteGraph(res.Graph)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	written := []string{path}
	for _, sr := range res.Strategies {
		paths, err := r.opts.Emitter.WriteStrategy(sr.Name, sr.Partition, sr.Report)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		written = append(written, paths...)
	}
	return written, nil
}

func (r *Runner) persist(ctx context.Context, res *Result) error {
	ctx, span := observability.StartStageSpan(ctx, "persist")
	defer span.End()

	err := r.opts.Repository.StoreGraph(ctx, graph.Run{
		ID:        res.RunID,
		CreatedAt: res.Metrics.StartedAt,
		Files:     res.Stats.Files,
		Edges:     res.Stats.Edges,
	}, res.Graph)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("store graph: %w", err)
	}
	for _, sr := range res.Strategies {
		err := r.opts.Repository.StoreSnapshot(ctx, graph.Snapshot{
			RunID:     res.RunID,
			Strategy:  sr.Name,
			Partition: sr.Partition,
			Report:    sr.Report,
			Relocated: sr.Relocated,
		})
		if err != nil {
			observability.RecordError(span, err)
			return fmt.Errorf("store %s snapshot: %w", sr.Name, err)
		}
	}
	return nil
}
