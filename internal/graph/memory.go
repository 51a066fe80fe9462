package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// MemoryRepository keeps runs in process. It backs the CLI when no graph
// database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	runs      map[string]Run
	graphs    map[string]*depgraph.Graph
	snapshots map[string]map[string]Snapshot
}

// NewMemory creates an empty in-process repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		runs:      make(map[string]Run),
		graphs:    make(map[string]*depgraph.Graph),
		snapshots: make(map[string]map[string]Snapshot),
	}
}

func (r *MemoryRepository) StoreGraph(_ context.Context, run Run, g *depgraph.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	r.graphs[run.ID] = copyGraph(g)
	return nil
}

func (r *MemoryRepository) StoreSnapshot(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[s.RunID]; !ok {
		return fmt.Errorf("store %s snapshot: %w: %s", s.Strategy, ErrRunNotFound, s.RunID)
	}
	if r.snapshots[s.RunID] == nil {
		r.snapshots[s.RunID] = make(map[string]Snapshot)
	}
	s.Partition = s.Partition.Clone()
	r.snapshots[s.RunID][s.Strategy] = s
	return nil
}

func (r *MemoryRepository) LoadGraph(_ context.Context, runID string) (*depgraph.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return copyGraph(g), nil
}

func (r *MemoryRepository) LoadPartition(_ context.Context, runID, strategy string) (*community.Partition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[runID][strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, strategy)
	}
	return s.Partition.Clone(), nil
}

func (r *MemoryRepository) QueryDependents(_ context.Context, runID, file string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	var out []string
	g.Each(func(src string, deps []string) {
		for _, d := range deps {
			if d == file {
				out = append(out, src)
				return
			}
		}
	})
	return out, nil
}

// Snapshots returns the stored strategies of a run in no particular order.
func (r *MemoryRepository) Snapshots(runID string) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.snapshots[runID]))
	for _, s := range r.snapshots[runID] {
		out = append(out, s)
	}
	return out
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

func copyGraph(g *depgraph.Graph) *depgraph.Graph {
	out := depgraph.New()
	g.Each(func(file string, deps []string) {
		out.Set(file, deps...)
	})
	return out
}

var _ Repository = (*MemoryRepository)(nil)
