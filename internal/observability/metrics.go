package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/efebarandurmaz/modgraph/internal/coupling"
)

// Metrics holds the Prometheus collectors of one CLI invocation. modgraph
// is not a long-running service, so the collectors are dumped to a
// node-exporter textfile instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	GraphFiles        prometheus.Gauge
	GraphEdges        prometheus.Gauge
	Communities       *prometheus.GaugeVec
	OuterConnections  *prometheus.GaugeVec
	OuterImports      *prometheus.GaugeVec
	OuterExports      *prometheus.GaugeVec
	MaxExportsOneFile *prometheus.GaugeVec
	SharedFiles       *prometheus.GaugeVec
	StrategyDuration  *prometheus.HistogramVec
	StrategyErrors    *prometheus.CounterVec
	GateFailures      *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	byStrategy := []string{"strategy"}

	return &Metrics{
		registry: reg,
		GraphFiles: f.NewGauge(prometheus.GaugeOpts{
			Name: "modgraph_graph_files",
			Help: "Files that are keys of the dependency graph",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "modgraph_graph_edges",
			Help: "Dependency edges in the graph",
		}),
		Communities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_communities",
			Help: "Communities produced by a strategy",
		}, byStrategy),
		OuterConnections: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_outer_connections",
			Help: "Cross-community imports plus exports",
		}, byStrategy),
		OuterImports: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_outer_imports",
			Help: "Edges leaving their source community",
		}, byStrategy),
		OuterExports: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_outer_exports",
			Help: "Edges entering a community from another one",
		}, byStrategy),
		MaxExportsOneFile: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_max_outer_exports_one_file",
			Help: "Outer exports of the most used single file",
		}, byStrategy),
		SharedFiles: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "modgraph_shared_files",
			Help: "Files relocated into the Shared community",
		}, byStrategy),
		StrategyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modgraph_strategy_duration_seconds",
			Help:    "Wall time of detection, rebalancing and metrics for a strategy",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		}, byStrategy),
		StrategyErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modgraph_strategy_errors_total",
			Help: "Strategies that failed",
		}, byStrategy),
		GateFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modgraph_gate_failures_total",
			Help: "Quality gates that failed or warned",
		}, []string{"strategy", "gate"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordGraph sets the graph size gauges.
func (m *Metrics) RecordGraph(files, edges int) {
	m.GraphFiles.Set(float64(files))
	m.GraphEdges.Set(float64(edges))
}

// RecordStrategy records a finished strategy.
func (m *Metrics) RecordStrategy(strategy string, r *coupling.Report, shared int, elapsed time.Duration) {
	m.Communities.WithLabelValues(strategy).Set(float64(r.Summary.Communities))
	m.OuterConnections.WithLabelValues(strategy).Set(float64(r.Summary.OuterConnections))
	m.OuterImports.WithLabelValues(strategy).Set(float64(r.Summary.OuterImports))
	m.OuterExports.WithLabelValues(strategy).Set(float64(r.Summary.OuterExports))
	m.MaxExportsOneFile.WithLabelValues(strategy).Set(float64(r.Summary.MaxOuterExportsOneFile))
	m.SharedFiles.WithLabelValues(strategy).Set(float64(shared))
	m.StrategyDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordStrategyError counts a failed strategy.
func (m *Metrics) RecordStrategyError(strategy string) {
	m.StrategyErrors.WithLabelValues(strategy).Inc()
}

// RecordGateFailure counts a gate that did not pass.
func (m *Metrics) RecordGateFailure(strategy, gate string) {
	m.GateFailures.WithLabelValues(strategy, gate).Inc()
}

// WriteTextfile writes all collectors to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
