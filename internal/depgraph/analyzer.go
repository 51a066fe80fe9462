package depgraph

import "sort"

// Analyze computes fan-in/fan-out, connectivity and cycle statistics.
func Analyze(g *Graph) Stats {
	st := Stats{Files: g.Len(), Edges: g.EdgeCount()}

	fanOut := make(map[string]int)
	fanIn := make(map[string]int)
	unmodeled := make(map[string]bool)

	g.Each(func(file string, deps []string) {
		fanOut[file] += len(deps)
		for _, d := range deps {
			fanIn[d]++
			if d == file {
				st.SelfLoops++
			}
			if !g.Has(d) {
				unmodeled[d] = true
			}
		}
	})
	st.UnmodeledTargets = len(unmodeled)

	// iterate in node order so ties resolve to the first file seen
	for _, n := range g.Nodes() {
		if fanOut[n] > st.MaxFanOut {
			st.MaxFanOut = fanOut[n]
			st.FanOutHotspot = n
		}
		if fanIn[n] > st.MaxFanIn {
			st.MaxFanIn = fanIn[n]
			st.FanInHotspot = n
		}
	}

	st.ConnectedComponents = countComponents(g)
	st.Cycles = detectCycles(g)
	return st
}

// countComponents counts weakly connected components via union-find
func countComponents(g *Graph) int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	nodes := g.Nodes()
	for _, n := range nodes {
		find(n)
	}
	g.Each(func(file string, deps []string) {
		for _, d := range deps {
			union(file, d)
		}
	})

	roots := make(map[string]bool)
	for _, n := range nodes {
		roots[find(n)] = true
	}
	return len(roots)
}

// detectCycles finds cycles using DFS over file edges. Self loops are
// reported by Stats.SelfLoops, not here.
func detectCycles(g *Graph) [][]string {
	var cycles [][]string
	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	path := make([]string, 0)

	var dfs func(node string)
	dfs = func(node string) {
		if visited[node] == 2 {
			return
		}
		if visited[node] == 1 {
			cycle := make([]string, 0)
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == node {
					break
				}
			}
			for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
				cycle[i], cycle[j] = cycle[j], cycle[i]
			}
			if len(cycle) > 1 {
				cycles = append(cycles, cycle)
			}
			return
		}
		visited[node] = 1
		path = append(path, node)
		for _, next := range g.Dependencies(node) {
			dfs(next)
		}
		path = path[:len(path)-1]
		visited[node] = 2
	}

	// Sort for deterministic output
	files := g.Files()
	sort.Strings(files)
	for _, f := range files {
		if visited[f] == 0 {
			dfs(f)
		}
	}
	return cycles
}
