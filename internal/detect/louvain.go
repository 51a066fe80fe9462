package detect

import (
	"context"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// minGain is the modularity improvement below which a level counts as converged.
const minGain = 1e-7

// Louvain alternates local moving, in a seeded random order, with
// aggregation of the found communities into super-nodes until modularity
// stops improving. The result is a labelling in node order.
type Louvain struct{}

func (Louvain) Name() string { return "louvain" }

func (Louvain) Detect(ctx context.Context, g *depgraph.Graph, cfg Config) (Raw, error) {
	base := newNetwork(g)
	membership := make([]int, len(base.nodes))
	for i := range membership {
		membership[i] = i
	}

	level := base
	quality := base.modularity(membership, cfg.Resolution)
	for pass := 0; pass < cfg.MaxIterations && level.m > 0; pass++ {
		if err := ctx.Err(); err != nil {
			return Raw{}, err
		}
		local, moved := moveNodes(level, cfg.Resolution, cfg.Seed+int64(pass), cfg.MaxIterations)
		if !moved {
			break
		}
		next := make([]int, len(membership))
		for i, c := range membership {
			next[i] = local[c]
		}
		q := base.modularity(next, cfg.Resolution)
		if q-quality <= minGain {
			break
		}
		membership, quality = next, q
		level = aggregate(level, local)
	}

	membership = renumber(membership)
	l := make(community.Labelling, len(base.nodes))
	for i, node := range base.nodes {
		l[i] = community.Assignment{Node: node, Label: membership[i]}
	}
	return Raw{Labelling: l}, nil
}

// moveNodes runs the local moving phase and returns the renumbered
// community of every vertex of n.
func moveNodes(n *network, resolution float64, seed int64, maxSweeps int) ([]int, bool) {
	comm := make([]int, len(n.nodes))
	total := make([]float64, len(n.nodes))
	for i := range comm {
		comm[i] = i
		total[i] = n.degree[i]
	}

	order := shuffled(len(n.nodes), seed)
	improved := false
	for sweep := 0; sweep < maxSweeps; sweep++ {
		moved := false
		for _, i := range order {
			ki := n.degree[i]
			weights := make(map[int]float64)
			var seen []int
			for _, j := range n.neighbours(i) {
				c := comm[j]
				if _, ok := weights[c]; !ok {
					seen = append(seen, c)
				}
				weights[c] += n.adj[i][j]
			}

			own := comm[i]
			total[own] -= ki
			best := own
			bestGain := weights[own]/n.m - resolution*total[own]*ki/(2*n.m*n.m)
			for _, c := range seen {
				gain := weights[c]/n.m - resolution*total[c]*ki/(2*n.m*n.m)
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}
			total[best] += ki
			if best != own {
				comm[i] = best
				moved, improved = true, true
			}
		}
		if !moved {
			break
		}
	}
	return renumber(comm), improved
}

// aggregate collapses every community of n into one vertex. Internal
// weight becomes a loop on the new vertex.
func aggregate(n *network, comm []int) *network {
	size := 0
	for _, c := range comm {
		size = max(size, c+1)
	}
	out := &network{
		nodes:  make([]string, size),
		adj:    make([]map[int]float64, size),
		degree: make([]float64, size),
		m:      n.m,
	}
	for i := range out.adj {
		out.adj[i] = make(map[int]float64)
	}
	for i, row := range n.adj {
		ci := comm[i]
		out.degree[ci] += n.degree[i]
		for j, w := range row {
			cj := comm[j]
			switch {
			case i == j:
				out.adj[ci][ci] += w
			case ci == cj:
				// each internal pair is visited from both ends
				out.adj[ci][ci] += w / 2
			default:
				out.adj[ci][cj] += w
			}
		}
	}
	return out
}
