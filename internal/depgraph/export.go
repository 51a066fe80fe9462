package depgraph

import (
	"fmt"
	"strings"
)

// ExportDOT generates a Graphviz DOT representation of the graph. When
// clusters is non-nil each community becomes a subgraph and edges that
// cross community boundaries are drawn in red.
func ExportDOT(g *Graph, clusters Clusters) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")

	owner := clusterOwners(clusters)
	if clusters != nil {
		b.WriteString("  rankdir=LR;\n")
		b.WriteString("  node [fontname=\"Helvetica\" shape=box];\n\n")
		for i, id := range clusters.IDs() {
			b.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
			b.WriteString(fmt.Sprintf("    label=%s;\n", dotQuote(clusterLabel(id))))
			b.WriteString("    style=dashed;\n")
			b.WriteString("    color=\"#58a6ff\";\n")
			for _, f := range clusters.Members(id) {
				b.WriteString(fmt.Sprintf("    %s;\n", dotQuote(f)))
			}
			b.WriteString("  }\n\n")
		}
	}

	g.Each(func(file string, deps []string) {
		for _, d := range deps {
			attrs := ""
			if clusters != nil && crosses(owner, file, d) {
				attrs = " [color=\"#f85149\"]"
			}
			b.WriteString(fmt.Sprintf("  %s -> %s%s\n", dotQuote(file), dotQuote(d), attrs))
		}
	})

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid flowchart of the graph. Cross-community
// edges use a thick arrow.
func ExportMermaid(g *Graph, clusters Clusters) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	ids := make(map[string]string)
	nodeID := func(f string) string {
		if id, ok := ids[f]; ok {
			return id
		}
		id := fmt.Sprintf("n%d", len(ids))
		ids[f] = id
		return id
	}

	owner := clusterOwners(clusters)
	if clusters != nil {
		for i, id := range clusters.IDs() {
			b.WriteString(fmt.Sprintf("  subgraph c%d[\"%s\"]\n", i, mermaidEscape(clusterLabel(id))))
			for _, f := range clusters.Members(id) {
				b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeID(f), mermaidEscape(f)))
			}
			b.WriteString("  end\n")
		}
	}
	for _, f := range g.Nodes() {
		if _, ok := ids[f]; !ok {
			b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeID(f), mermaidEscape(f)))
		}
	}

	g.Each(func(file string, deps []string) {
		for _, d := range deps {
			arrow := "-->"
			if clusters != nil && crosses(owner, file, d) {
				arrow = "==>"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", nodeID(file), arrow, nodeID(d)))
		}
	})

	return b.String()
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(st Stats) string {
	var b strings.Builder
	b.WriteString("Dependency Graph Statistics\n")
	b.WriteString("==========================\n\n")
	b.WriteString(fmt.Sprintf("Files:       %d\n", st.Files))
	b.WriteString(fmt.Sprintf("Edges:       %d\n", st.Edges))
	b.WriteString(fmt.Sprintf("Unmodeled:   %d\n", st.UnmodeledTargets))
	b.WriteString(fmt.Sprintf("Self Loops:  %d\n", st.SelfLoops))
	b.WriteString(fmt.Sprintf("Max Fan-Out: %d (%s)\n", st.MaxFanOut, st.FanOutHotspot))
	b.WriteString(fmt.Sprintf("Max Fan-In:  %d (%s)\n", st.MaxFanIn, st.FanInHotspot))
	b.WriteString(fmt.Sprintf("Components:  %d\n", st.ConnectedComponents))

	if len(st.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nCyclic Dependencies: %d\n", len(st.Cycles)))
		for i, cycle := range st.Cycles {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(cycle, " -> ")))
		}
	}
	return b.String()
}

func clusterOwners(c Clusters) map[string]string {
	if c == nil {
		return nil
	}
	owner := make(map[string]string)
	for _, id := range c.IDs() {
		for _, f := range c.Members(id) {
			owner[f] = id
		}
	}
	return owner
}

func crosses(owner map[string]string, from, to string) bool {
	a, okA := owner[from]
	b, okB := owner[to]
	return okA != okB || a != b
}

func clusterLabel(id string) string {
	if id == "" {
		return "(root)"
	}
	return id
}

func dotQuote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
