package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/modgraph/internal/config"
	"github.com/efebarandurmaz/modgraph/internal/resolve"
)

const hubDeps = `{
  "c1/shared": [],
  "c1/a": ["c1/shared"],
  "c2/a": ["c1/shared"],
  "c3/a": ["c1/shared"],
  "c4/a": ["c1/shared"]
}`

const hubPartition = `{"c1": ["c1/shared", "c1/a"], "c2": ["c2/a"], "c3": ["c3/a"], "c4": ["c4/a"]}`

func writeInputs(t *testing.T) inputFlags {
	t.Helper()
	dir := t.TempDir()
	deps := filepath.Join(dir, "deps.json")
	part := filepath.Join(dir, "partition.json")
	if err := os.WriteFile(deps, []byte(hubDeps), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(part, []byte(hubPartition), 0o644); err != nil {
		t.Fatal(err)
	}
	return inputFlags{deps: deps, partition: part, shape: "auto", format: "json", threshold: 3}
}

func TestRunMetrics(t *testing.T) {
	in := writeInputs(t)

	var buf bytes.Buffer
	if err := runMetrics(&buf, in); err != nil {
		t.Fatalf("runMetrics: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"maxOuterExportsOneFile": 3`) {
		t.Errorf("expected hub with 3 outer exports:\n%s", out)
	}
	if strings.Contains(out, `"Shared"`) {
		t.Error("metrics without --rebalance must not create Shared")
	}

	in.rebalance = true
	buf.Reset()
	if err := runMetrics(&buf, in); err != nil {
		t.Fatalf("runMetrics --rebalance: %v", err)
	}
	if !strings.Contains(buf.String(), `"Shared"`) {
		t.Errorf("expected Shared community after rebalance:\n%s", buf.String())
	}
}

func TestRunRebalance(t *testing.T) {
	in := writeInputs(t)
	in.format = "yaml"

	var buf bytes.Buffer
	if err := runRebalance(&buf, in); err != nil {
		t.Fatalf("runRebalance: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "Shared:") || !strings.Contains(out, "- c1/shared") {
		t.Errorf("unexpected partition:\n%s", buf.String())
	}

	in.threshold = 0
	if err := runRebalance(&buf, in); err == nil {
		t.Error("expected error for threshold 0")
	}
}

func TestRunExport(t *testing.T) {
	in := writeInputs(t)

	tests := []struct {
		name   string
		format string
		part   bool
		want   string
	}{
		{"dot", "dot", false, "digraph dependencies {"},
		{"dot clusters", "dot", true, "subgraph cluster_0"},
		{"mermaid", "mermaid", false, "graph LR"},
		{"json", "json", false, `"c1/shared": []`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := in
			flags.format = tt.format
			if !tt.part {
				flags.partition = ""
			}
			var buf bytes.Buffer
			if err := runExport(&buf, flags); err != nil {
				t.Fatalf("runExport: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}

	in.format = "svg"
	if err := runExport(&bytes.Buffer{}, in); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "analyze"}
	var af analyzeFlags
	cmd.Flags().StringSliceVar(&af.strategies, "strategies", nil, "")
	cmd.Flags().IntVar(&af.threshold, "threshold", 0, "")
	cmd.Flags().StringVar(&af.output, "output", "", "")
	if err := cmd.Flags().Parse([]string{"--strategies", "current,louvain", "--threshold", "5"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	applyOverrides(cfg, cmd, af)

	if got := strings.Join(cfg.Analysis.Strategies, ","); got != "current,louvain" {
		t.Errorf("strategies = %s", got)
	}
	if cfg.Analysis.SharedThreshold != 5 {
		t.Errorf("threshold = %d, want 5", cfg.Analysis.SharedThreshold)
	}
	if cfg.Analysis.OutputDir != "output" {
		t.Errorf("unset flag must keep config value, got %q", cfg.Analysis.OutputDir)
	}
}

func TestBuildResolver(t *testing.T) {
	cfg := config.Default()

	r, err := buildResolver(cfg, analyzeFlags{deps: "deps.json"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(resolve.FileResolver); !ok {
		t.Errorf("expected FileResolver, got %T", r)
	}

	r, err = buildResolver(cfg, analyzeFlags{files: []string{"src"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*resolve.MadgeResolver); !ok {
		t.Errorf("expected MadgeResolver, got %T", r)
	}

	if _, err := buildResolver(cfg, analyzeFlags{}); !errors.Is(err, resolve.ErrNoFiles) {
		t.Errorf("expected ErrNoFiles, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	log.Info("hidden")
	log.Warn("shown", "k", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info must be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON record, got %q", out)
	}
	if !log.Enabled(context.Background(), slog.LevelError) {
		t.Error("error level must be enabled")
	}
}
