package supervisor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"licman/internal/config"
)

// ErrUnknownGroup is returned for a group name the registry does not hold.
var ErrUnknownGroup = errors.New("unknown process group")

// Registry holds the process groups of one project root.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]Group
}

// NewRegistry creates a registry holding groups.
func NewRegistry(groups ...Group) *Registry {
	m := make(map[string]Group, len(groups))
	for _, g := range groups {
		m[g.Name] = g
	}
	return &Registry{groups: m}
}

// DefaultRegistry holds the web and queue groups.
func DefaultRegistry(layout config.Layout, cfg *config.Config, user, path string) *Registry {
	return NewRegistry(
		WebGroup(layout, cfg, user, path),
		QueueGroup(layout, cfg, user, path),
	)
}

// Get retrieves a group by name
func (r *Registry) Get(name string) (Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[name]
	if !ok {
		return Group{}, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	return g, nil
}

// List returns all group names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of groups
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.groups)
}
