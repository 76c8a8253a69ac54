package hook

import (
	"fmt"
	"sort"

	"github.com/katharostech/lucky/internal/charm"
)

// ErrUnknownHook is returned when no logic is registered for a hook name.
var ErrUnknownHook = fmt.Errorf("unknown hook")

// Registry is the daemon's dispatch table from hook names to the scripts
// registered for them. It is built once at daemon startup and read-only
// afterwards; the daemon owns it exclusively.
type Registry struct {
	hooks map[string][]charm.Script
}

// NewRegistry builds a registry from parsed charm metadata.
func NewRegistry(md *charm.Metadata) *Registry {
	hooks := make(map[string][]charm.Script, len(md.Hooks))
	for name, scripts := range md.Hooks {
		hooks[name] = scripts
	}
	return &Registry{hooks: hooks}
}

// Lookup returns the scripts registered for a hook name.
func (r *Registry) Lookup(name string) ([]charm.Script, error) {
	scripts, ok := r.hooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}
	return scripts, nil
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
