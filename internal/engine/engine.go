package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/validation"
)

var ErrUnknownPolicy = errors.New("unknown policy")

// Registry holds the named policies of the process.
// It is built once at startup and only read afterwards, so it is safe for
// concurrent use without locking.
type Registry struct {
	policies map[string]core.Policy
	order    []string
}

// NewRegistry validates the given policies and builds a registry from them.
// Policy names must be unique across all arguments.
func NewRegistry(policies ...core.Policy) (*Registry, error) {
	valid, err := validation.ValidatePolicies(policies)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		policies: make(map[string]core.Policy, len(valid)),
		order:    make([]string, 0, len(valid)),
	}
	for _, p := range valid {
		r.policies[p.Name] = p
		r.order = append(r.order, p.Name)
	}
	return r, nil
}

// NewDefaultRegistry returns a registry with the built-in policies followed by extra.
func NewDefaultRegistry(extra ...core.Policy) (*Registry, error) {
	return NewRegistry(append(core.DefaultPolicies(), extra...)...)
}

func (r *Registry) Get(name string) (core.Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names returns the registered policy names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Policies returns all registered policies in registration order.
func (r *Registry) Policies() []core.Policy {
	out := make([]core.Policy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.policies[name])
	}
	return out
}

// Require returns an error if any of the names is not registered.
func (r *Registry) Require(names ...string) error {
	for _, name := range names {
		if _, ok := r.policies[name]; !ok {
			return fmt.Errorf("%w: '%s'", ErrUnknownPolicy, name)
		}
	}
	return nil
}

// Authorize reports whether identity satisfies the named policy.
// A nil identity is anonymous. Unknown policies never admit.
func (r *Registry) Authorize(identity *core.Identity, name string) bool {
	p, ok := r.policies[name]
	if !ok {
		return false
	}
	return checkPolicy(p, identity).Matched
}

// AuthorizeAll evaluates the policies in order and returns the name of the
// first one that rejects identity. ok is true only if all of them admit.
func (r *Registry) AuthorizeAll(identity *core.Identity, names ...string) (denied string, ok bool) {
	for _, name := range names {
		if !r.Authorize(identity, name) {
			return name, false
		}
	}
	return "", true
}

// Evaluate checks a single policy and returns the full result.
func (r *Registry) Evaluate(identity *core.Identity, name string) (core.PolicyResult, error) {
	p, ok := r.policies[name]
	if !ok {
		return core.PolicyResult{PolicyName: name}, fmt.Errorf("%w: '%s'", ErrUnknownPolicy, name)
	}
	return checkPolicy(p, identity), nil
}

// Trace evaluates every named policy (all registered ones if names is empty)
// without short-circuiting, so callers can see why each one passed or failed.
func (r *Registry) Trace(identity *core.Identity, names ...string) core.EvaluationTrace {
	if len(names) == 0 {
		names = r.order
	}
	trace := core.EvaluationTrace{
		Identity:      identity,
		FinalDecision: true,
	}
	for _, name := range names {
		res, err := r.Evaluate(identity, name)
		if err != nil {
			res.ConditionResults = []core.ConditionResult{{Expression: "policy exists", Reason: err.Error()}}
		}
		if !res.Matched {
			trace.FinalDecision = false
		}
		trace.PolicyResults = append(trace.PolicyResults, res)
	}
	if len(trace.PolicyResults) == 0 {
		trace.FinalDecision = false
	}
	return trace
}
