package router

import (
	"fmt"
	"sort"
)

// Router owns the ordered list of horoscope providers. The list itself is
// fixed at construction; only each provider's disabled flag changes.
type Router struct {
	providers []*Provider
	byName    map[string]*Provider
}

// New creates a Router over providers in priority order. Names must be
// unique.
func New(providers []*Provider) (*Router, error) {
	byName := make(map[string]*Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("router: nil provider")
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("router: duplicate provider %q", p.Name)
		}
		byName[p.Name] = p
	}

	list := make([]*Provider, len(providers))
	copy(list, providers)
	return &Router{providers: list, byName: byName}, nil
}

// Candidates returns a snapshot of the providers ordered for one lookup:
// providers that are not disabled first, then disabled ones. Relative
// configuration order is preserved within each group.
func (r *Router) Candidates() []*Provider {
	out := make([]*Provider, len(r.providers))
	copy(out, r.providers)
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Disabled() && out[j].Disabled()
	})
	return out
}

// Get returns the provider with the given name.
func (r *Router) Get(name string) (*Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Len returns the number of configured providers.
func (r *Router) Len() int {
	return len(r.providers)
}

// Statuses returns the state of every provider in configuration order.
func (r *Router) Statuses() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Status())
	}
	return out
}

// Available returns the number of providers that can currently serve a
// lookup.
func (r *Router) Available() int {
	n := 0
	for _, p := range r.providers {
		if p.Usable() {
			n++
		}
	}
	return n
}
