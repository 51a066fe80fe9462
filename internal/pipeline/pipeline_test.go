package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/detect"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/qualitygate"
	"github.com/efebarandurmaz/modgraph/internal/report"
	"github.com/efebarandurmaz/modgraph/internal/resolve"
)

// byDirectory is a detector that returns the top-directory grouping as
// node sets.
type byDirectory struct{}

func (byDirectory) Name() string { return "bydir" }

func (byDirectory) Detect(_ context.Context, g *depgraph.Graph, _ detect.Config) (detect.Raw, error) {
	p := community.GroupByTopDirectory(g.Files())
	var sets [][]string
	for _, id := range p.IDs() {
		sets = append(sets, p.Members(id))
	}
	return detect.Raw{Sets: sets}, nil
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) Detect(context.Context, *depgraph.Graph, detect.Config) (detect.Raw, error) {
	return detect.Raw{}, errors.New("engine crashed")
}

func hub() *depgraph.Graph {
	return depgraph.FromEntries(
		depgraph.Entry{File: "c1/shared"},
		depgraph.Entry{File: "c1/a", Deps: []string{"c1/shared"}},
		depgraph.Entry{File: "c2/a", Deps: []string{"c1/shared"}},
		depgraph.Entry{File: "c3/a", Deps: []string{"c1/shared"}},
		depgraph.Entry{File: "c4/a", Deps: []string{"c1/shared"}},
	)
}

func registry() *detect.Registry {
	r := detect.DefaultRegistry()
	r.Register(byDirectory{})
	r.Register(failing{})
	return r
}

func detectConfig() detect.Config {
	return detect.Config{Resolution: detect.DefaultResolution, MaxIterations: 100}
}

func TestAnalyze_BaselineIsNotRebalanced(t *testing.T) {
	r := New(Options{
		Strategies:        []string{Current, "bydir"},
		FilesPerCommunity: 30,
		Detect:            detectConfig(),
		Registry:          registry(),
	})

	res, err := r.Analyze(context.Background(), hub())
	require.NoError(t, err)
	require.Len(t, res.Strategies, 2)
	assert.NotEmpty(t, res.RunID)

	current := res.Strategy(Current)
	assert.Empty(t, current.Relocated)
	assert.False(t, current.Partition.Has(community.Shared))
	assert.Equal(t, 3, current.Report.Summary.MaxOuterExportsOneFile)

	bydir := res.Strategy("bydir")
	assert.Equal(t, []string{"c1/shared"}, bydir.Relocated)
	assert.Equal(t, 1, bydir.Shared())
	assert.Equal(t, 4, bydir.Report.Summary.OuterImports)
	assert.Equal(t, 4, bydir.Report.Summary.OuterExports)
	assert.Equal(t, 8, bydir.Report.Summary.OuterConnections)
}

func TestAnalyze_KeepsStrategyOrder(t *testing.T) {
	names := []string{"louvain", Current, "greedy", "labelprop"}
	r := New(Options{Strategies: names, FilesPerCommunity: 30, Detect: detectConfig()})

	res, err := r.Analyze(context.Background(), hub())
	require.NoError(t, err)
	for i, sr := range res.Strategies {
		assert.Equal(t, names[i], sr.Name)
		assert.Equal(t, sr.Report.Summary.OuterImports, sr.Report.Summary.OuterExports, sr.Name)
		assert.Equal(t, 5, sr.Partition.FileCount(), "%s must cover every file", sr.Name)
	}
	require.Len(t, res.Metrics.Strategies, len(names))
}

func TestAnalyze_UnknownStrategy(t *testing.T) {
	_, err := New(Options{Strategies: []string{"spectral"}, Detect: detectConfig()}).
		Analyze(context.Background(), hub())
	assert.ErrorIs(t, err, detect.ErrUnknownDetector)
}

func TestAnalyze_StrategyError(t *testing.T) {
	m := observability.NewMetrics()
	_, err := New(Options{
		Strategies: []string{Current, "failing"},
		Detect:     detectConfig(),
		Registry:   registry(),
		Metrics:    m,
	}).Analyze(context.Background(), hub())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy failing")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyErrors.WithLabelValues("failing")))
}

func TestAnalyze_Gates(t *testing.T) {
	m := observability.NewMetrics()
	r := New(Options{
		Strategies:        []string{Current, "bydir"},
		FilesPerCommunity: 30,
		Detect:            detectConfig(),
		Registry:          registry(),
		Gates:             qualitygate.NewPipeline(qualitygate.NewHotspotGate(2, qualitygate.SeverityRequired)),
		Metrics:           m,
	})

	res, err := r.Analyze(context.Background(), hub())
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.True(t, res.Strategy(Current).Gates.Failed())
	assert.False(t, res.Strategy("bydir").Gates.Failed(), "Shared is exempt from the hotspot gate")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateFailures.WithLabelValues(Current, "hotspot")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.OuterConnections.WithLabelValues("bydir")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.GraphFiles))
}

func TestAnalyze_EmitsAndPersists(t *testing.T) {
	dir := t.TempDir()
	repo := graph.NewMemory()
	r := New(Options{
		Strategies:        []string{Current, "bydir"},
		FilesPerCommunity: 30,
		Detect:            detectConfig(),
		Registry:          registry(),
		Emitter:           report.NewEmitter(dir, report.FormatJSON),
		Repository:        repo,
	})

	res, err := r.Analyze(context.Background(), hub())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "file_dependencies.json"),
		filepath.Join(dir, "communities_current.json"),
		filepath.Join(dir, "metrics_current.json"),
		filepath.Join(dir, "communities_bydir.json"),
		filepath.Join(dir, "metrics_bydir.json"),
	}, res.Written)
	for _, path := range res.Written {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	p, err := repo.LoadPartition(context.Background(), res.RunID, "bydir")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1/shared"}, p.Members(community.Shared))
	assert.Len(t, repo.Snapshots(res.RunID), 2)
	assert.Empty(t, res.Metrics.Errors)
}

func TestRun_Resolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a/x": ["b/y"], "b/y": []}`), 0o644))

	res, err := New(Options{Strategies: []string{Current}}).Run(context.Background(), resolve.FileResolver{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Strategy(Current).Report.Summary.OuterConnections)

	_, err = New(Options{}).Run(context.Background(), resolve.FileResolver{Path: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "resolve dependencies"))
}
