// Package formats converts heterogeneous raw corpus files into the
// canonical verse/token/segment shape. Each format is an independent
// pure normalizer; adding a source format is additive and touches
// nothing downstream.
package formats

import (
	"io"
	"sort"
	"sync"

	kerr "github.com/kalimaproject/kalima/core/errors"
	"github.com/kalimaproject/kalima/core/model"
)

// Normalizer converts one raw source format into canonical verse
// records. Parse is pure: input in, records out, no side effects.
type Normalizer interface {
	// Name is the format's registry key.
	Name() string
	// Detect reports whether the file at path looks like this format.
	Detect(path string) bool
	// Parse reads the whole input and returns verse records in source
	// order.
	Parse(r io.Reader) ([]model.Verse, error)
}

// Registry holds the known normalizers by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Normalizer
}

// NewRegistry returns a registry preloaded with every built-in format.
func NewRegistry() *Registry {
	reg := &Registry{byName: make(map[string]Normalizer)}
	reg.Register(NewPrimary())
	reg.Register(NewLegacy())
	reg.Register(NewTabular())
	reg.Register(NewTanzil())
	return reg
}

// Register adds or replaces a normalizer under its name.
func (r *Registry) Register(n Normalizer) {
	r.mu.Lock()
	r.byName[n.Name()] = n
	r.mu.Unlock()
}

// Get looks a normalizer up by name.
func (r *Registry) Get(name string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.byName[name]; ok {
		return n, nil
	}
	return nil, kerr.Invalidf("format", "unknown format %q", name)
}

// Detect returns the first normalizer claiming the file, in stable
// name order.
func (r *Registry) Detect(path string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if n := r.byName[name]; n.Detect(path) {
			return n, nil
		}
	}
	return nil, kerr.Invalidf("format", "no format recognizes %q", path)
}

// Names lists the registered format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
