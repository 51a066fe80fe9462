package coupling

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/orderedset"
)

// OuterExports counts, for every file in the partition, the edges that
// reach it from a different community. Only edges whose source belongs to
// the partition are considered, and targets outside the partition never
// get a counter.
func OuterExports(p *community.Partition, g *depgraph.Graph) ExportCounts {
	counts := make(ExportCounts, p.FileCount())
	for _, f := range p.Files() {
		counts[f] = 0
	}

	g.Each(func(source string, deps []string) {
		srcID, ok := p.CommunityOf(source)
		if !ok {
			return
		}
		for _, target := range deps {
			dstID, known := p.CommunityOf(target)
			if known && dstID != srcID {
				counts[target]++
			}
		}
	})
	return counts
}

// exportHit is one cross edge whose target belongs to a known community.
type exportHit struct {
	community string
	file      string
}

// partial is what a single community contributes before merging.
type partial struct {
	imports           int
	maxImportsOneFile int
	maxExportsOneFile int
	filesWithImports  []string
	hits              []exportHit
}

// Compute builds per-community metrics and the summary. Communities are
// aggregated concurrently against the read-only export counts and merged in
// partition order, so the output matches a sequential pass.
func Compute(p *community.Partition, g *depgraph.Graph) *Report {
	exports := OuterExports(p, g)
	ids := p.IDs()
	parts := make([]partial, len(ids))

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		eg.Go(func() error {
			parts[i] = aggregate(p, g, id, exports)
			return nil
		})
	}
	_ = eg.Wait() // aggregate never fails

	report := &Report{
		IDs:         ids,
		Communities: make(map[string]*Metrics, len(ids)),
	}
	exported := make(map[string]*orderedset.Set[string], len(ids))
	for _, id := range ids {
		report.Communities[id] = &Metrics{Files: p.Size(id)}
		exported[id] = &orderedset.Set[string]{}
	}

	for i, id := range ids {
		m := report.Communities[id]
		m.OuterImports = parts[i].imports
		m.MaxOuterImportsOneFile = parts[i].maxImportsOneFile
		m.MaxOuterExportsOneFile = parts[i].maxExportsOneFile
		m.FilesWithOuterImports = parts[i].filesWithImports
		for _, h := range parts[i].hits {
			report.Communities[h.community].OuterExports++
			exported[h.community].Add(h.file)
		}
	}

	s := &report.Summary
	s.Communities = len(ids)
	for _, id := range ids {
		m := report.Communities[id]
		m.FilesWithOuterExports = exported[id].Items()
		m.OuterConnections = m.OuterExports + m.OuterImports

		s.OuterImports += m.OuterImports
		s.OuterExports += m.OuterExports
		s.OuterConnections += m.OuterConnections
		s.MaxOuterImportsOneFile = max(s.MaxOuterImportsOneFile, m.MaxOuterImportsOneFile)
		s.MaxOuterExportsOneFile = max(s.MaxOuterExportsOneFile, m.MaxOuterExportsOneFile)
	}
	return report
}

func aggregate(p *community.Partition, g *depgraph.Graph, id string, exports ExportCounts) partial {
	var out partial
	importers := orderedset.Set[string]{}

	for _, file := range p.Members(id) {
		inFile := 0
		for _, dep := range g.Dependencies(file) {
			depID, known := p.CommunityOf(dep)
			if known && depID == id {
				continue
			}
			out.imports++
			inFile++
			importers.Add(file)
			if known {
				out.hits = append(out.hits, exportHit{community: depID, file: dep})
			}
		}
		out.maxImportsOneFile = max(out.maxImportsOneFile, inFile)
		out.maxExportsOneFile = max(out.maxExportsOneFile, exports.Get(file))
	}
	out.filesWithImports = importers.Items()
	return out
}
