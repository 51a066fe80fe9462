// Package metrics collects run statistics and renders the strategy
// comparison shown at the end of an analysis.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/coupling"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// RunMetrics collects statistics for a full analysis run.
type RunMetrics struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
	Duration   time.Duration     `json:"duration_ms,omitempty"`
	Graph      GraphMetrics      `json:"graph"`
	Strategies []StrategyMetrics `json:"strategies"`
	Errors     []string          `json:"errors,omitempty"`
}

type GraphMetrics struct {
	Files            int `json:"files"`
	Edges            int `json:"edges"`
	UnmodeledTargets int `json:"unmodeled_targets"`
	SelfLoops        int `json:"self_loops"`
	Components       int `json:"connected_components"`
}

type StrategyMetrics struct {
	Name              string        `json:"name"`
	Duration          time.Duration `json:"duration_ms"`
	Communities       int           `json:"communities"`
	Shared            int           `json:"shared"`
	OuterConnections  int           `json:"outer_connections"`
	OuterImports      int           `json:"outer_imports"`
	OuterExports      int           `json:"outer_exports"`
	MaxExportsOneFile int           `json:"max_outer_exports_one_file"`
	Gates             string        `json:"gates,omitempty"`
}

// New starts tracking a run.
func New(runID string) *RunMetrics {
	return &RunMetrics{RunID: runID, StartedAt: time.Now()}
}

// CollectGraph records the shape of the dependency graph.
func (m *RunMetrics) CollectGraph(st depgraph.Stats) {
	m.Graph = GraphMetrics{
		Files:            st.Files,
		Edges:            st.Edges,
		UnmodeledTargets: st.UnmodeledTargets,
		SelfLoops:        st.SelfLoops,
		Components:       st.ConnectedComponents,
	}
}

// AddStrategy records one strategy's totals. gates is the gate status, or
// empty when gates did not run.
func (m *RunMetrics) AddStrategy(name string, d time.Duration, s coupling.Summary, shared int, gates string) {
	m.Strategies = append(m.Strategies, StrategyMetrics{
		Name:              name,
		Duration:          d,
		Communities:       s.Communities,
		Shared:            shared,
		OuterConnections:  s.OuterConnections,
		OuterImports:      s.OuterImports,
		OuterExports:      s.OuterExports,
		MaxExportsOneFile: s.MaxOuterExportsOneFile,
		Gates:             gates,
	})
}

// Best returns the strategy with the fewest outer connections; ties go to
// the earlier strategy. ok is false when nothing was recorded.
func (m *RunMetrics) Best() (StrategyMetrics, bool) {
	if len(m.Strategies) == 0 {
		return StrategyMetrics{}, false
	}
	best := m.Strategies[0]
	for _, s := range m.Strategies[1:] {
		if s.OuterConnections < best.OuterConnections {
			best = s
		}
	}
	return best, true
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
}

// PrintSummary writes a human-readable comparison of the strategies.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        MODGRAPH ANALYSIS REPORT      ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Run:         %-23s ║\n", shortID(m.RunID))
	fmt.Fprintf(w, "║ Duration:    %-23s ║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH\n")
	fmt.Fprintf(w, "║   Files:       %d\n", m.Graph.Files)
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Graph.Edges)
	fmt.Fprintf(w, "║   Unmodeled:   %d\n", m.Graph.UnmodeledTargets)
	fmt.Fprintf(w, "║   Components:  %d\n", m.Graph.Components)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STRATEGIES\n")
	fmt.Fprintf(w, "║   %-10s %5s %6s %6s %6s %5s %8s\n", "name", "comm", "shared", "conns", "maxexp", "gate", "time")
	for _, s := range m.Strategies {
		gate := s.Gates
		if gate == "" {
			gate = "-"
		}
		fmt.Fprintf(w, "║   %-10s %5d %6d %6d %6d %5s %8s\n",
			s.Name, s.Communities, s.Shared, s.OuterConnections, s.MaxExportsOneFile, gate, s.Duration.Round(time.Millisecond))
	}
	if best, ok := m.Best(); ok {
		fmt.Fprintf(w, "║   Lowest coupling: %s (%d)\n", best.Name, best.OuterConnections)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
