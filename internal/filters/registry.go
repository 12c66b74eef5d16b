// Package filters provides the filter implementations a graph description
// can reference by name, and the registry the compiler resolves them from.
package filters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/smazurov/framegraph/internal/topology"
)

// Definition describes a named filter.
type Definition struct {
	Name        string
	Description string
	// Options lists option names in positional order.
	Options []string
	New     func(opts Options) (topology.Filter, error)
}

// Registry maps filter names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Default returns a registry preloaded with the built-in filters.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range builtins() {
		// builtin names are unique
		_ = r.Register(def)
	}
	return r
}

// Register adds a definition; names must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.New == nil {
		return fmt.Errorf("filter definition needs a name and constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("filter %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Definitions returns every definition sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Create resolves args against the definition and builds a filter instance.
func (r *Registry) Create(name, args string) (topology.Filter, error) {
	def, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no such filter: %q", name)
	}
	opts, err := ParseOptions(args, def.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	f, err := def.New(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func builtins() []Definition {
	return []Definition{
		{
			Name:        "null",
			Description: "Pass the video source unchanged to the output.",
			New:         func(Options) (topology.Filter, error) { return newPassthrough(videoPad), nil },
		},
		{
			Name:        "anull",
			Description: "Pass the audio source unchanged to the output.",
			New:         func(Options) (topology.Filter, error) { return newPassthrough(audioPad), nil },
		},
		{
			Name:        "scale",
			Description: "Scale the input video size.",
			Options:     []string{"w", "h"},
			New:         newScale,
		},
		{
			Name:        "overlay",
			Description: "Overlay a video source on top of the input.",
			Options:     []string{"x", "y", "eof_action", "shortest"},
			New:         newOverlay,
		},
		{
			Name:        "format",
			Description: "Convert the input video to one of the specified pixel formats.",
			Options:     []string{"pix_fmts"},
			New:         newFormat,
		},
		{
			Name:        "trim",
			Description: "Pick one continuous section from the input, drop the rest.",
			Options:     []string{"start_frame", "end_frame"},
			New:         newTrim,
		},
		{
			Name:        "split",
			Description: "Pass on the input video to N outputs.",
			Options:     []string{"outputs"},
			New:         func(o Options) (topology.Filter, error) { return newSplit(videoPad, o) },
		},
		{
			Name:        "asplit",
			Description: "Pass on the audio input to N audio outputs.",
			Options:     []string{"outputs"},
			New:         func(o Options) (topology.Filter, error) { return newSplit(audioPad, o) },
		},
		{
			Name:        "volume",
			Description: "Change input volume.",
			Options:     []string{"volume"},
			New:         newVolume,
		},
	}
}
