package qualitygate

import (
	"fmt"

	"github.com/efebarandurmaz/modgraph/internal/community"
)

// ConnectionsGate caps the total number of cross-community edges.
type ConnectionsGate struct {
	Max      int
	severity GateSeverity
}

func NewConnectionsGate(limit int, severity GateSeverity) *ConnectionsGate {
	return &ConnectionsGate{Max: limit, severity: severity}
}

func (g *ConnectionsGate) Name() string           { return "connections" }
func (g *ConnectionsGate) Severity() GateSeverity { return g.severity }
func (g *ConnectionsGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	if ctx.Report == nil {
		return nil, fmt.Errorf("no report for %s", ctx.Strategy)
	}
	got := ctx.Report.Summary.OuterConnections
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
		Value:    float64(got),
		Limit:    float64(g.Max),
	}
	if got <= g.Max {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Outer connections %d within limit %d", got, g.Max)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Outer connections %d exceed limit %d", got, g.Max)
	}
	return r, nil
}

// HotspotGate caps the outer exports of the most used single file outside
// the Shared community.
type HotspotGate struct {
	Max      int
	severity GateSeverity
}

func NewHotspotGate(limit int, severity GateSeverity) *HotspotGate {
	return &HotspotGate{Max: limit, severity: severity}
}

func (g *HotspotGate) Name() string           { return "hotspot" }
func (g *HotspotGate) Severity() GateSeverity { return g.severity }
func (g *HotspotGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	if ctx.Report == nil {
		return nil, fmt.Errorf("no report for %s", ctx.Strategy)
	}
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
		Limit:    float64(g.Max),
	}
	worst := 0
	for _, id := range ctx.Report.IDs {
		if id == community.Shared {
			continue
		}
		m := ctx.Report.Community(id)
		if m.MaxOuterExportsOneFile > g.Max {
			r.Details = append(r.Details, fmt.Sprintf("%s: %d", displayID(id), m.MaxOuterExportsOneFile))
		}
		worst = max(worst, m.MaxOuterExportsOneFile)
	}
	r.Value = float64(worst)
	if len(r.Details) == 0 {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Busiest file has %d outer exports, limit %d", worst, g.Max)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d communities hold a file above %d outer exports", len(r.Details), g.Max)
	}
	return r, nil
}

// SharedRatioGate caps the fraction of files relocated into Shared.
type SharedRatioGate struct {
	MaxRatio float64
	severity GateSeverity
}

func NewSharedRatioGate(maxRatio float64, severity GateSeverity) *SharedRatioGate {
	return &SharedRatioGate{MaxRatio: maxRatio, severity: severity}
}

func (g *SharedRatioGate) Name() string           { return "shared_ratio" }
func (g *SharedRatioGate) Severity() GateSeverity { return g.severity }
func (g *SharedRatioGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	if ctx.Report == nil {
		return nil, fmt.Errorf("no report for %s", ctx.Strategy)
	}
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
		Limit:    g.MaxRatio,
	}
	total := 0
	for _, id := range ctx.Report.IDs {
		total += ctx.Report.Community(id).Files
	}
	if total == 0 {
		r.Status = GateSkipped
		r.Message = "No files to evaluate"
		return r, nil
	}
	shared := 0
	if m := ctx.Report.Community(community.Shared); m != nil {
		shared = m.Files
	}
	ratio := float64(shared) / float64(total)
	r.Value = ratio
	if ratio <= g.MaxRatio {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Shared holds %.1f%% of files, limit %.1f%%", ratio*100, g.MaxRatio*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Shared holds %.1f%% of files (%d/%d), limit %.1f%%", ratio*100, shared, total, g.MaxRatio*100)
		r.Details = ctx.Relocated
	}
	return r, nil
}

// UnattributedGate caps imports that point at files outside every
// community. Those edges are the gap between total imports and exports.
type UnattributedGate struct {
	Max      int
	severity GateSeverity
}

func NewUnattributedGate(limit int, severity GateSeverity) *UnattributedGate {
	return &UnattributedGate{Max: limit, severity: severity}
}

func (g *UnattributedGate) Name() string           { return "unattributed" }
func (g *UnattributedGate) Severity() GateSeverity { return g.severity }
func (g *UnattributedGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	if ctx.Report == nil {
		return nil, fmt.Errorf("no report for %s", ctx.Strategy)
	}
	s := ctx.Report.Summary
	got := s.OuterImports - s.OuterExports
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
		Value:    float64(got),
		Limit:    float64(g.Max),
	}
	if got <= g.Max {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("%d imports leave the partition, limit %d", got, g.Max)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d imports leave the partition, above limit %d", got, g.Max)
	}
	return r, nil
}

func displayID(id string) string {
	if id == "" {
		return "(root)"
	}
	return id
}
