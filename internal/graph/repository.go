// Package graph persists dependency graphs and analysed partitions.
package graph

import (
	"context"
	"errors"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/coupling"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// ErrRunNotFound is returned when a run id has no stored graph.
var ErrRunNotFound = errors.New("run not found")

// Run identifies one analysis.
type Run struct {
	ID        string
	CreatedAt time.Time
	Files     int
	Edges     int
}

// Snapshot is the outcome of one strategy within a run.
type Snapshot struct {
	RunID     string
	Strategy  string
	Partition *community.Partition
	Report    *coupling.Report
	Relocated []string
}

// Repository stores analysis runs.
type Repository interface {
	// StoreGraph persists the dependency graph of a run.
	StoreGraph(ctx context.Context, run Run, g *depgraph.Graph) error
	// StoreSnapshot persists a strategy's partition and metrics.
	StoreSnapshot(ctx context.Context, s Snapshot) error
	// LoadGraph retrieves the dependency graph of a run.
	LoadGraph(ctx context.Context, runID string) (*depgraph.Graph, error)
	// LoadPartition retrieves a strategy's partition.
	LoadPartition(ctx context.Context, runID, strategy string) (*community.Partition, error)
	// QueryDependents returns the files that import file.
	QueryDependents(ctx context.Context, runID, file string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
