// Package coupling measures how much dependency traffic crosses community
// boundaries and relocates over-used files into the Shared community.
package coupling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SummaryKey is the reserved report key holding the totals.
const SummaryKey = "Summary"

// ErrSummaryCollision is returned when a community id equals SummaryKey and
// the report cannot be serialized unambiguously.
var ErrSummaryCollision = errors.New("community id collides with the Summary key")

// ExportCounts maps a partition member to its number of incoming
// cross-community edges. Files outside the partition have no entry.
type ExportCounts map[string]int

// Get returns the count for file, 0 when it has none.
func (c ExportCounts) Get(file string) int {
	return c[file]
}

// Metrics describes one community's cross-boundary coupling.
type Metrics struct {
	Files                  int      `json:"files" yaml:"files"`
	OuterConnections       int      `json:"outerConnections" yaml:"outerConnections"`
	OuterImports           int      `json:"outerImports" yaml:"outerImports"`
	OuterExports           int      `json:"outerExports" yaml:"outerExports"`
	MaxOuterImportsOneFile int      `json:"maxOuterImportsOneFile" yaml:"maxOuterImportsOneFile"`
	MaxOuterExportsOneFile int      `json:"maxOuterExportsOneFile" yaml:"maxOuterExportsOneFile"`
	FilesWithOuterImports  []string `json:"filesWithOuterImports" yaml:"filesWithOuterImports"`
	FilesWithOuterExports  []string `json:"filesWithOuterExports" yaml:"filesWithOuterExports"`
}

// Summary totals the per-community metrics.
type Summary struct {
	Communities            int `json:"communities" yaml:"communities"`
	OuterConnections       int `json:"outerConnections" yaml:"outerConnections"`
	OuterImports           int `json:"outerImports" yaml:"outerImports"`
	OuterExports           int `json:"outerExports" yaml:"outerExports"`
	MaxOuterImportsOneFile int `json:"maxOuterImportsOneFile" yaml:"maxOuterImportsOneFile"`
	MaxOuterExportsOneFile int `json:"maxOuterExportsOneFile" yaml:"maxOuterExportsOneFile"`
}

// Report is the full metrics output for one partition.
type Report struct {
	IDs         []string            // community order
	Communities map[string]*Metrics // keyed by community id
	Summary     Summary
}

// Community returns the metrics of id, or nil.
func (r *Report) Community(id string) *Metrics {
	return r.Communities[id]
}

// MarshalJSON writes {id: metrics, ..., "Summary": summary}.
func (r *Report) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for _, id := range r.IDs {
		if id == SummaryKey {
			return nil, ErrSummaryCollision
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Communities[id].normalized())
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
		b.WriteByte(',')
	}
	s, err := json.Marshal(r.Summary)
	if err != nil {
		return nil, err
	}
	b.WriteString(`"` + SummaryKey + `":`)
	b.Write(s)
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalYAML writes the same layout as MarshalJSON.
func (r *Report) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, v any) error {
		val := &yaml.Node{}
		if err := val.Encode(v); err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, val)
		return nil
	}
	for _, id := range r.IDs {
		if id == SummaryKey {
			return nil, ErrSummaryCollision
		}
		if err := add(id, r.Communities[id].normalized()); err != nil {
			return nil, err
		}
	}
	if err := add(SummaryKey, r.Summary); err != nil {
		return nil, err
	}
	return n, nil
}

// normalized replaces nil lists with empty ones so they serialize as [].
func (m *Metrics) normalized() *Metrics {
	cp := *m
	if cp.FilesWithOuterImports == nil {
		cp.FilesWithOuterImports = []string{}
	}
	if cp.FilesWithOuterExports == nil {
		cp.FilesWithOuterExports = []string{}
	}
	return &cp
}
