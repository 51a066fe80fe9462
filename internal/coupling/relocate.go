package coupling

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// DefaultSharedThreshold is the outer-export count at which a file is moved
// to the Shared community.
const DefaultSharedThreshold = 3

var (
	// ErrSharedCollision is returned when files would be relocated but the
	// partition already carries a community with the reserved Shared id.
	ErrSharedCollision = errors.New("partition already has a Shared community")
	// ErrInvalidThreshold is returned for thresholds below 1.
	ErrInvalidThreshold = errors.New("shared threshold must be at least 1")
)

// Relocate moves every file whose outer-export count is at least threshold
// into the Shared community, in first-seen order, and returns the moved
// files. The partition is modified in place. When nothing qualifies the
// partition is left untouched and no Shared community is created. Files
// already in a pre-existing Shared community are not considered.
func Relocate(p *community.Partition, g *depgraph.Graph, threshold int) ([]string, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreshold, threshold)
	}
	counts := OuterExports(p, g)

	var flagged []string
	for _, id := range p.IDs() {
		if id == community.Shared {
			continue
		}
		for _, f := range p.Members(id) {
			if counts.Get(f) >= threshold {
				flagged = append(flagged, f)
			}
		}
	}
	if len(flagged) == 0 {
		return nil, nil
	}
	if p.Has(community.Shared) {
		return nil, fmt.Errorf("%w: %d files qualify for relocation", ErrSharedCollision, len(flagged))
	}

	for _, f := range flagged {
		p.RemoveFile(f)
	}
	if err := p.Replace(community.Shared, flagged); err != nil {
		return nil, fmt.Errorf("create shared community: %w", err)
	}
	return flagged, nil
}
