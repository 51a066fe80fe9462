package detect

import (
	"context"
	"sort"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// Greedy is Clauset-Newman-Moore agglomeration: starting from singletons it
// repeatedly merges the connected pair of communities with the largest
// modularity gain. It stops when no merge gains or when MinCommunities
// remain. The result is a list of node sets, largest first.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Detect(ctx context.Context, g *depgraph.Graph, cfg Config) (Raw, error) {
	n := newNetwork(g)
	size := len(n.nodes)

	members := make([][]int, size)
	total := make([]float64, size)
	links := make([]map[int]float64, size)
	alive := make([]bool, size)
	for i := range n.nodes {
		members[i] = []int{i}
		total[i] = n.degree[i]
		links[i] = make(map[int]float64, len(n.adj[i]))
		for _, j := range n.neighbours(i) {
			links[i][j] = n.adj[i][j]
		}
		alive[i] = true
	}

	count := size
	for count > cfg.MinCommunities && n.m > 0 {
		if err := ctx.Err(); err != nil {
			return Raw{}, err
		}
		a, b, gain, ok := bestMerge(links, total, alive, n.m, cfg.Resolution)
		if !ok || gain < 0 {
			break
		}
		members[a] = append(members[a], members[b]...)
		total[a] += total[b]
		for c, w := range links[b] {
			delete(links[c], b)
			if c == a {
				continue
			}
			links[a][c] += w
			links[c][a] = links[a][c]
		}
		links[b] = nil
		alive[b] = false
		count--
	}

	var sets [][]int
	for i, ok := range alive {
		if ok {
			sort.Ints(members[i])
			sets = append(sets, members[i])
		}
	}
	sort.SliceStable(sets, func(i, j int) bool { return len(sets[i]) > len(sets[j]) })

	out := make([][]string, len(sets))
	for i, set := range sets {
		out[i] = make([]string, len(set))
		for j, v := range set {
			out[i][j] = n.nodes[v]
		}
	}
	return Raw{Sets: out}, nil
}

// bestMerge scans connected community pairs in index order and returns the
// one with the largest gain; ties keep the first pair found.
func bestMerge(links []map[int]float64, total []float64, alive []bool, m, resolution float64) (int, int, float64, bool) {
	var (
		bestA, bestB int
		best         float64
		found        bool
	)
	for a := range links {
		if !alive[a] {
			continue
		}
		keys := make([]int, 0, len(links[a]))
		for b := range links[a] {
			if b > a {
				keys = append(keys, b)
			}
		}
		sort.Ints(keys)
		for _, b := range keys {
			gain := links[a][b]/m - resolution*total[a]*total[b]/(2*m*m)
			if !found || gain > best {
				bestA, bestB, best, found = a, b, gain, true
			}
		}
	}
	return bestA, bestB, best, found
}
