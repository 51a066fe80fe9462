package qualitygate

import "fmt"

// GateConfig defines the configuration for quality gates. A zero limit
// disables the connections, hotspot and shared gates; a negative limit
// disables the unattributed gate.
type GateConfig struct {
	Enabled                bool    `mapstructure:"enabled" json:"enabled"`
	MaxOuterConnections    int     `mapstructure:"max_outer_connections" json:"max_outer_connections" validate:"min=0"`
	ConnectionsSeverity    string  `mapstructure:"connections_severity" json:"connections_severity" validate:"omitempty,oneof=critical required advisory"`
	MaxOuterExportsOneFile int     `mapstructure:"max_outer_exports_one_file" json:"max_outer_exports_one_file" validate:"min=0"`
	HotspotSeverity        string  `mapstructure:"hotspot_severity" json:"hotspot_severity" validate:"omitempty,oneof=critical required advisory"`
	MaxSharedRatio         float64 `mapstructure:"max_shared_ratio" json:"max_shared_ratio" validate:"gte=0,lte=1"`
	SharedSeverity         string  `mapstructure:"shared_severity" json:"shared_severity" validate:"omitempty,oneof=critical required advisory"`
	MaxUnattributed        int     `mapstructure:"max_unattributed_imports" json:"max_unattributed_imports" validate:"min=-1"`
	UnattributedSeverity   string  `mapstructure:"unattributed_severity" json:"unattributed_severity" validate:"omitempty,oneof=critical required advisory"`
}

// DefaultConfig returns sensible default gate configuration.
func DefaultConfig() *GateConfig {
	return &GateConfig{
		Enabled:                true,
		MaxOuterConnections:    0, // disabled by default
		ConnectionsSeverity:    "advisory",
		MaxOuterExportsOneFile: 0,
		HotspotSeverity:        "required",
		MaxSharedRatio:         0.5,
		SharedSeverity:         "advisory",
		MaxUnattributed:        -1,
		UnattributedSeverity:   "advisory",
	}
}

// parseSeverity converts a string to GateSeverity.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration. A disabled
// configuration yields an empty pipeline.
func BuildPipeline(cfg *GateConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := NewPipeline()
	if !cfg.Enabled {
		return p
	}

	if cfg.MaxOuterConnections > 0 {
		p.AddGate(NewConnectionsGate(cfg.MaxOuterConnections, parseSeverity(cfg.ConnectionsSeverity)))
	}

	if cfg.MaxOuterExportsOneFile > 0 {
		p.AddGate(NewHotspotGate(cfg.MaxOuterExportsOneFile, parseSeverity(cfg.HotspotSeverity)))
	}

	if cfg.MaxSharedRatio > 0 {
		p.AddGate(NewSharedRatioGate(cfg.MaxSharedRatio, parseSeverity(cfg.SharedSeverity)))
	}

	if cfg.MaxUnattributed >= 0 {
		p.AddGate(NewUnattributedGate(cfg.MaxUnattributed, parseSeverity(cfg.UnattributedSeverity)))
	}

	return p
}

// FormatReport returns a human-readable quality gate report.
func FormatReport(result *PipelineResult) string {
	var s string
	s += "╔══════════════════════════════════════════╗\n"
	s += fmt.Sprintf("║ Quality Gates: %-26s║\n", result.Strategy)
	s += "╠══════════════════════════════════════════╣\n"

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}

		severity := ""
		switch gr.Severity {
		case SeverityCritical:
			severity = "[CRITICAL]"
		case SeverityRequired:
			severity = "[REQUIRED]"
		case SeverityAdvisory:
			severity = "[ADVISORY]"
		}

		s += fmt.Sprintf("║ %s %-14s %-10s %s\n", icon, gr.Name, severity, gr.Message)
		for _, d := range gr.Details {
			s += fmt.Sprintf("║   → %s\n", d)
		}
	}

	s += "╠══════════════════════════════════════════╣\n"
	status := "PASSED"
	if result.Status == GateFailed {
		status = "FAILED"
	}
	s += fmt.Sprintf("║ Result: %s (%s)\n", status, result.Summary)
	s += "╚══════════════════════════════════════════╝\n"

	return s
}
