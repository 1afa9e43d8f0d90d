package validation

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/darmiel/idgate/internal/core"
)

// ValidatePolicies checks that policy names are present and unique, that
// conditions are well-formed and compiles expressions.
func ValidatePolicies(policies []core.Policy) ([]core.Policy, error) {
	seenNames := make(map[string]struct{})
	validPolicies := make([]core.Policy, 0, len(policies))

	for i, p := range policies {
		if p.Name == "" {
			return nil, fmt.Errorf("policy #%d missing name", i)
		}
		if _, exists := seenNames[p.Name]; exists {
			return nil, fmt.Errorf("policy name '%s' is not unique", p.Name)
		}
		seenNames[p.Name] = struct{}{}

		p.RequiredRoles = core.NormalizeRoles(p.RequiredRoles)

		if p.Condition != nil {
			if err := p.Condition.Validate(); err != nil {
				return nil, fmt.Errorf("validating condition for policy '%s': %w", p.Name, err)
			}
		}
		if p.Expr != "" {
			out, err := expr.Compile(p.Expr, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compiling expr for policy '%s': %w", p.Name, err)
			}
			p.CompiledExpr = out
		}

		validPolicies = append(validPolicies, p)
	}

	return validPolicies, nil
}
