package retry

import (
	"fmt"
	"slices"
)

// Registry holds named retry policies. It is built once at startup and only
// read afterwards.
type Registry struct {
	policies map[string]Policy
}

func NewRegistry(policies ...Policy) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.policies[p.Name]; exists {
			return nil, fmt.Errorf("retry policy name '%s' is not unique", p.Name)
		}
		r.policies[p.Name] = p
	}
	return r, nil
}

func (r *Registry) Get(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
