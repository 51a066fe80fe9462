// Package community holds the canonical partition of files into communities
// and the conversions that produce it.
package community

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/modgraph/internal/orderedset"
)

// Shared is the reserved id of the community holding over-exported files.
const Shared = "Shared"

var (
	// ErrDuplicateFile is returned when a file would belong to two communities.
	ErrDuplicateFile = errors.New("file already assigned to another community")
	// ErrInvalidLabel is returned for community labels that are not strings or integers.
	ErrInvalidLabel = errors.New("invalid community label")
)

// Partition maps community ids to disjoint, insertion-ordered file sets.
// Community ids keep the order in which they were created.
type Partition struct {
	ids   []string
	sets  map[string]*orderedset.Set[string]
	owner map[string]string
}

// New returns an empty partition.
func New() *Partition {
	return &Partition{
		sets:  make(map[string]*orderedset.Set[string]),
		owner: make(map[string]string),
	}
}

// Ensure creates an empty community if id is not present yet.
func (p *Partition) Ensure(id string) {
	if _, ok := p.sets[id]; ok {
		return
	}
	p.ids = append(p.ids, id)
	p.sets[id] = &orderedset.Set[string]{}
}

// Add puts file into community id, creating the community when needed.
// Adding a file to the community it already belongs to is a no-op.
func (p *Partition) Add(id, file string) error {
	if cur, ok := p.owner[file]; ok {
		if cur == id {
			return nil
		}
		return fmt.Errorf("%w: %q in %q and %q", ErrDuplicateFile, file, cur, id)
	}
	p.Ensure(id)
	p.sets[id].Add(file)
	p.owner[file] = id
	return nil
}

// Replace creates or overwrites community id with exactly files. Files
// already owned by another community are rejected and nothing changes.
func (p *Partition) Replace(id string, files []string) error {
	for _, f := range files {
		if cur, ok := p.owner[f]; ok && cur != id {
			return fmt.Errorf("%w: %q in %q and %q", ErrDuplicateFile, f, cur, id)
		}
	}
	if old, ok := p.sets[id]; ok {
		old.Each(func(f string) { delete(p.owner, f) })
	}
	p.Ensure(id)
	p.sets[id] = orderedset.New(files...)
	for _, f := range files {
		p.owner[f] = id
	}
	return nil
}

// RemoveFile removes file from every community containing it and reports
// how many communities held it.
func (p *Partition) RemoveFile(file string) int {
	n := 0
	for _, id := range p.ids {
		if p.sets[id].Remove(file) {
			n++
		}
	}
	delete(p.owner, file)
	return n
}

// CommunityOf returns the community owning file; ok is false for files
// outside the partition.
func (p *Partition) CommunityOf(file string) (id string, ok bool) {
	id, ok = p.owner[file]
	return id, ok
}

// Has reports whether community id exists.
func (p *Partition) Has(id string) bool {
	_, ok := p.sets[id]
	return ok
}

// IDs returns community ids in creation order.
func (p *Partition) IDs() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// Members returns the files of community id in insertion order.
func (p *Partition) Members(id string) []string {
	return p.sets[id].Items()
}

// Size returns the number of files in community id.
func (p *Partition) Size(id string) int {
	return p.sets[id].Len()
}

// Len returns the number of communities.
func (p *Partition) Len() int { return len(p.ids) }

// FileCount returns the number of files across all communities.
func (p *Partition) FileCount() int { return len(p.owner) }

// Files returns every file, community by community.
func (p *Partition) Files() []string {
	out := make([]string, 0, len(p.owner))
	for _, id := range p.ids {
		out = append(out, p.sets[id].Items()...)
	}
	return out
}

// Clone returns a deep copy.
func (p *Partition) Clone() *Partition {
	c := New()
	for _, id := range p.ids {
		c.ids = append(c.ids, id)
		c.sets[id] = p.sets[id].Clone()
	}
	for f, id := range p.owner {
		c.owner[f] = id
	}
	return c
}

// Map returns the partition as a plain map, suitable for comparisons.
func (p *Partition) Map() map[string][]string {
	out := make(map[string][]string, len(p.ids))
	for _, id := range p.ids {
		out[id] = p.sets[id].Items()
	}
	return out
}

// MarshalJSON writes {id: [files]} keeping community order. Empty
// communities serialize as [].
func (p *Partition) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, id := range p.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		members := p.sets[id].Items()
		if members == nil {
			members = []string{}
		}
		v, err := json.Marshal(members)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalYAML writes the partition as an ordered mapping.
func (p *Partition) MarshalYAML() (any, error) {
	return p.yamlNode(), nil
}
