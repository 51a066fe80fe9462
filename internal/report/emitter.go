// Package report writes analysis results to the output directory.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/coupling"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// Format selects the encoding of partition and metrics files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a config value to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

func (f Format) ext() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Emitter writes result files into Dir.
type Emitter struct {
	Dir    string
	Format Format
}

// NewEmitter returns an emitter for dir.
func NewEmitter(dir string, format Format) *Emitter {
	return &Emitter{Dir: dir, Format: format}
}

// GraphPath is where the dependency graph is written. The graph is always
// JSON so it can be fed back through --deps.
func (e *Emitter) GraphPath() string {
	return filepath.Join(e.Dir, "file_dependencies.json")
}

// CommunitiesPath is where a strategy's partition is written.
func (e *Emitter) CommunitiesPath(strategy string) string {
	return filepath.Join(e.Dir, fmt.Sprintf("communities_%s.%s", strategy, e.Format.ext()))
}

// MetricsPath is where a strategy's coupling report is written.
func (e *Emitter) MetricsPath(strategy string) string {
	return filepath.Join(e.Dir, fmt.Sprintf("metrics_%s.%s", strategy, e.Format.ext()))
}

// WriteGraph writes the dependency graph.
func (e *Emitter) WriteGraph(g *depgraph.Graph) (string, error) {
	data, err := depgraph.ExportJSON(g)
	if err != nil {
		return "", fmt.Errorf("encode dependency graph: %w", err)
	}
	path := e.GraphPath()
	return path, e.write(path, data)
}

// WriteStrategy writes a strategy's partition and metrics and returns the
// paths written.
func (e *Emitter) WriteStrategy(strategy string, p *community.Partition, r *coupling.Report) ([]string, error) {
	communities, err := e.encode(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s communities: %w", strategy, err)
	}
	metrics, err := e.encode(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s metrics: %w", strategy, err)
	}

	cp, mp := e.CommunitiesPath(strategy), e.MetricsPath(strategy)
	if err := e.write(cp, communities); err != nil {
		return nil, err
	}
	if err := e.write(mp, metrics); err != nil {
		return nil, err
	}
	return []string{cp, mp}, nil
}

// Encode serializes v in format f with an indent of 2.
func Encode(f Format, v any) ([]byte, error) {
	if f == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (e *Emitter) encode(v any) ([]byte, error) {
	return Encode(e.Format, v)
}

func (e *Emitter) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
