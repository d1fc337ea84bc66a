package source

import (
	"sort"
	"strings"

	"github.com/ar3ac/jobhunter/internal/model"
)

// Registry resolves source names used in searches to configured sources.
// Names are matched case-insensitively.
type Registry struct {
	sources map[string]model.Source
}

// NewRegistry returns a registry holding the given sources.
func NewRegistry(sources ...model.Source) *Registry {
	r := &Registry{sources: make(map[string]model.Source, len(sources))}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds s under its name, replacing any source of the same name.
func (r *Registry) Register(s model.Source) {
	r.sources[key(s.Name())] = s
}

// Lookup returns the source registered under name.
func (r *Registry) Lookup(name string) (model.Source, bool) {
	s, ok := r.sources[key(name)]
	return s, ok
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
