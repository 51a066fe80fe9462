// Package detect runs community-detection engines over a dependency graph.
// Engines return one of the two raw shapes understood by the community
// adapters: a flat labelling or a list of node sets.
package detect

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// DefaultResolution is the modularity resolution used when none is configured.
const DefaultResolution = 1.5

var (
	ErrUnknownDetector = errors.New("unknown detector")
	ErrInvalidConfig   = errors.New("invalid detector config")
)

// Config tunes a detection run.
type Config struct {
	// Resolution above 1 favours smaller communities.
	Resolution float64
	// MinCommunities stops agglomerative engines once this many communities remain.
	MinCommunities int
	// Seed fixes the visiting order of randomized engines.
	Seed int64
	// MaxIterations bounds the refinement passes of iterative engines.
	MaxIterations int
}

// Validate reports an error for settings no engine can run with.
func (c Config) Validate() error {
	if !(c.Resolution > 0) || math.IsInf(c.Resolution, 0) {
		return fmt.Errorf("%w: resolution %v must be positive", ErrInvalidConfig, c.Resolution)
	}
	if c.MinCommunities < 0 {
		return fmt.Errorf("%w: min communities %d is negative", ErrInvalidConfig, c.MinCommunities)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations %d must be at least 1", ErrInvalidConfig, c.MaxIterations)
	}
	return nil
}

// MinCommunitiesFor returns ceil(files / filesPerCommunity).
func MinCommunitiesFor(files, filesPerCommunity int) int {
	if filesPerCommunity < 1 || files < 1 {
		return 0
	}
	return (files + filesPerCommunity - 1) / filesPerCommunity
}

// Raw is what an engine returns. Exactly one of the fields is set.
type Raw struct {
	Labelling community.Labelling
	Sets      [][]string
}

// Partition normalizes the raw result.
func (r Raw) Partition() (*community.Partition, error) {
	if r.Sets != nil {
		return community.FromNodeSets(r.Sets)
	}
	return community.FromLabelling(r.Labelling)
}

// Detector is a community-detection engine.
type Detector interface {
	Name() string
	Detect(ctx context.Context, g *depgraph.Graph, cfg Config) (Raw, error)
}

// Run validates cfg, runs d and normalizes its output.
func Run(ctx context.Context, d Detector, g *depgraph.Graph, cfg Config) (*community.Partition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	raw, err := d.Detect(ctx, g, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	p, err := raw.Partition()
	if err != nil {
		return nil, fmt.Errorf("%s: normalize result: %w", d.Name(), err)
	}
	return p, nil
}
