package detect

import (
	"context"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// LabelPropagation gives every node its own label and then, in a seeded
// random order, adopts the label most common among its neighbours until no
// label changes. Ties go to the smallest label so runs are reproducible.
type LabelPropagation struct{}

func (LabelPropagation) Name() string { return "labelprop" }

func (LabelPropagation) Detect(ctx context.Context, g *depgraph.Graph, cfg Config) (Raw, error) {
	n := newNetwork(g)
	labels := make([]int, len(n.nodes))
	for i := range labels {
		labels[i] = i
	}

	order := shuffled(len(n.nodes), cfg.Seed)
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Raw{}, err
		}
		changed := false
		for _, i := range order {
			counts := make(map[int]float64)
			for _, j := range n.neighbours(i) {
				counts[labels[j]] += n.adj[i][j]
			}
			if len(counts) == 0 {
				continue
			}
			best, bestCount := -1, 0.0
			for label, c := range counts {
				if c > bestCount || (c == bestCount && label < best) {
					best, bestCount = label, c
				}
			}
			// keep the current label when it is among the most frequent
			if counts[labels[i]] == bestCount {
				continue
			}
			labels[i] = best
			changed = true
		}
		if !changed {
			break
		}
	}

	labels = renumber(labels)
	l := make(community.Labelling, len(n.nodes))
	for i, node := range n.nodes {
		l[i] = community.Assignment{Node: node, Label: labels[i]}
	}
	return Raw{Labelling: l}, nil
}
