package detect

import (
	"math/rand/v2"
	"sort"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// network is the undirected weighted view engines work on. adj is
// symmetric; a loop on i is stored once in adj[i][i].
type network struct {
	nodes  []string
	adj    []map[int]float64
	degree []float64
	m      float64 // total edge weight
}

// newNetwork collapses g into a simple undirected graph: every node of g
// becomes a vertex, each connected pair gets weight 1 and self loops are
// dropped.
func newNetwork(g *depgraph.Graph) *network {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	n := &network{
		nodes:  nodes,
		adj:    make([]map[int]float64, len(nodes)),
		degree: make([]float64, len(nodes)),
	}
	for i := range n.adj {
		n.adj[i] = make(map[int]float64)
	}
	for _, e := range g.Edges() {
		a, b := index[e.From], index[e.To]
		if a == b {
			continue
		}
		if _, ok := n.adj[a][b]; ok {
			continue
		}
		n.adj[a][b] = 1
		n.adj[b][a] = 1
		n.degree[a]++
		n.degree[b]++
		n.m++
	}
	return n
}

// neighbours returns the vertices adjacent to i, loop excluded, ascending.
func (n *network) neighbours(i int) []int {
	out := make([]int, 0, len(n.adj[i]))
	for j := range n.adj[i] {
		if j != i {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out
}

// modularity scores membership at the given resolution.
func (n *network) modularity(membership []int, resolution float64) float64 {
	if n.m == 0 {
		return 0
	}
	inside := make(map[int]float64)
	total := make(map[int]float64)
	for i, row := range n.adj {
		c := membership[i]
		total[c] += n.degree[i]
		for j, w := range row {
			if i <= j && membership[j] == c {
				inside[c] += w
			}
		}
	}
	q := 0.0
	for c, tot := range total {
		q += inside[c]/n.m - resolution*(tot/(2*n.m))*(tot/(2*n.m))
	}
	return q
}

func shuffled(size int, seed int64) []int {
	order := make([]int, size)
	for i := range order {
		order[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// renumber maps arbitrary labels to 0..k-1 in order of first appearance.
func renumber(labels []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		id, ok := ids[l]
		if !ok {
			id = len(ids)
			ids[l] = id
		}
		out[i] = id
	}
	return out
}
