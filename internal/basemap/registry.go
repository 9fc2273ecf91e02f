package basemap

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed basemaps.yaml
var builtinTable []byte

// ErrNotFound is returned when an identifier is not in the registry.
var ErrNotFound = errors.New("basemap not found")

// document is the on-disk shape of a registry file.
type document struct {
	Basemaps []Entry `yaml:"basemaps"`
}

// Registry is an immutable, ordered set of basemaps.
type Registry struct {
	list []Basemap
	byID map[string]int
}

// New builds a registry from entries, preserving their order.
func New(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("basemap: registry is empty")
	}
	r := &Registry{
		list: make([]Basemap, 0, len(entries)),
		byID: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		b, err := FromEntry(e)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[b.ID]; dup {
			return nil, fmt.Errorf("basemap %q: duplicate id", b.ID)
		}
		r.byID[b.ID] = len(r.list)
		r.list = append(r.list, b)
	}
	return r, nil
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("basemap: decode registry: %w", err)
	}
	return New(doc.Basemaps)
}

// Load reads a YAML registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("basemap: read registry: %w", err)
	}
	return Parse(data)
}

var builtin = sync.OnceValue(func() *Registry {
	r, err := Parse(builtinTable)
	if err != nil {
		panic(err)
	}
	return r
})

// Builtin returns the compiled-in registry.
func Builtin() *Registry { return builtin() }

// List returns the basemaps in registry order.
func (r *Registry) List() []Basemap {
	out := make([]Basemap, len(r.list))
	copy(out, r.list)
	return out
}

// Get looks up a basemap by identifier.
func (r *Registry) Get(id string) (Basemap, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Basemap{}, false
	}
	return r.list[i], true
}

// Lookup is Get with an error for API callers.
func (r *Registry) Lookup(id string) (Basemap, error) {
	b, ok := r.Get(id)
	if !ok {
		return Basemap{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return b, nil
}

// First returns the basemap active when a session starts.
func (r *Registry) First() Basemap { return r.list[0] }

// Entries returns the flat form of every basemap, in order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.list))
	for i, b := range r.list {
		out[i] = b.Entry()
	}
	return out
}

// MarshalYAML encodes the registry in the same shape Parse reads.
func (r *Registry) MarshalYAML() (any, error) {
	return document{Basemaps: r.Entries()}, nil
}
