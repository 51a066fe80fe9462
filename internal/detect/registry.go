package detect

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores available detectors by name.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// DefaultRegistry returns a registry holding the built-in engines.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Greedy{})
	r.Register(Louvain{})
	r.Register(LabelPropagation{})
	return r
}

func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Name()] = d
}

func (r *Registry) Get(name string) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDetector, name)
	}
	return d, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
