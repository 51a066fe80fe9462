package depgraph

import "errors"

// ErrMalformed is returned when dependency input does not have the
// file -> [files] shape.
var ErrMalformed = errors.New("malformed dependency graph")

// Graph is a directed file dependency graph. Keys keep the order in which
// they were first added; targets may name files that are not keys.
type Graph struct {
	files []string
	deps  map[string][]string
}

// Edge is a single source -> target dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Stats holds computed metrics about the graph
type Stats struct {
	Files               int        `json:"files"`
	Edges               int        `json:"edges"`
	UnmodeledTargets    int        `json:"unmodeled_targets"` // targets that are not keys
	SelfLoops           int        `json:"self_loops"`
	MaxFanOut           int        `json:"max_fan_out"`
	MaxFanIn            int        `json:"max_fan_in"`
	FanOutHotspot       string     `json:"fan_out_hotspot"`
	FanInHotspot        string     `json:"fan_in_hotspot"`
	ConnectedComponents int        `json:"connected_components"`
	Cycles              [][]string `json:"cycles,omitempty"`
}

// Clusters is a grouping of files used when rendering. community.Partition
// satisfies it.
type Clusters interface {
	IDs() []string
	Members(id string) []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{deps: make(map[string][]string)}
}

// FromEntries builds a graph from entries in order.
func FromEntries(entries ...Entry) *Graph {
	g := New()
	for _, e := range entries {
		g.Set(e.File, e.Deps...)
	}
	return g
}

// Entry is one graph key and its dependencies.
type Entry struct {
	File string
	Deps []string
}

// Set replaces the dependencies of file. A new file is appended to the key order.
func (g *Graph) Set(file string, deps ...string) {
	if g.deps == nil {
		g.deps = make(map[string][]string)
	}
	if _, ok := g.deps[file]; !ok {
		g.files = append(g.files, file)
	}
	cp := make([]string, len(deps))
	copy(cp, deps)
	g.deps[file] = cp
}

// Has reports whether file is a key of the graph.
func (g *Graph) Has(file string) bool {
	_, ok := g.deps[file]
	return ok
}

// Files returns the graph keys in insertion order.
func (g *Graph) Files() []string {
	out := make([]string, len(g.files))
	copy(out, g.files)
	return out
}

// Dependencies returns what file depends on, or nil for unmodeled files.
func (g *Graph) Dependencies(file string) []string {
	return g.deps[file]
}

// Len returns the number of keys.
func (g *Graph) Len() int { return len(g.files) }

// EdgeCount returns the number of directed edges, duplicates included.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, f := range g.files {
		n += len(g.deps[f])
	}
	return n
}

// Each visits every key and its dependencies in key order.
func (g *Graph) Each(fn func(file string, deps []string)) {
	for _, f := range g.files {
		fn(f, g.deps[f])
	}
}

// Edges flattens the graph into source -> target pairs.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	g.Each(func(file string, deps []string) {
		for _, d := range deps {
			edges = append(edges, Edge{From: file, To: d})
		}
	})
	return edges
}

// Nodes returns keys followed by unmodeled targets, each once.
func (g *Graph) Nodes() []string {
	seen := make(map[string]bool, len(g.files))
	nodes := make([]string, 0, len(g.files))
	for _, f := range g.files {
		seen[f] = true
		nodes = append(nodes, f)
	}
	g.Each(func(_ string, deps []string) {
		for _, d := range deps {
			if !seen[d] {
				seen[d] = true
				nodes = append(nodes, d)
			}
		}
	})
	return nodes
}
