package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/darmiel/idgate/internal/core"
)

// checkPolicy evaluates a single policy against the identity.
// Every check is recorded, a single failing check rejects.
func checkPolicy(p core.Policy, identity *core.Identity) core.PolicyResult {
	result := core.PolicyResult{
		PolicyName:       p.Name,
		Description:      p.Description,
		Matched:          true,
		ConditionResults: []core.ConditionResult{},
	}

	addResult := func(expression string, passed bool, reason string) {
		result.ConditionResults = append(result.ConditionResults, core.ConditionResult{
			Expression: expression,
			Matched:    passed,
			Reason:     reason,
		})
		if !passed {
			result.Matched = false
		}
	}

	if p.RequireAuthenticated {
		if identity.Authenticated() {
			addResult("authenticated", true, "")
		} else {
			addResult("authenticated", false, "no validated identity present")
		}
	}

	if len(p.RequiredRoles) > 0 {
		rolesExpr := fmt.Sprintf("roles intersect %v", p.RequiredRoles)
		switch {
		case !identity.Authenticated():
			addResult(rolesExpr, false, "anonymous callers carry no roles")
		case identity.HasAnyRole(p.RequiredRoles):
			addResult(rolesExpr, true, "")
		default:
			addResult(rolesExpr, false, fmt.Sprintf("caller has roles %v", identity.Roles))
		}
	}

	attributes := identity.Attributes()

	if p.Condition != nil {
		cr := evaluateCondition(*p.Condition, attributes)
		if !cr.Matched {
			result.Matched = false
		}
		flattenConditionResult(&result.ConditionResults, cr, 0)
	}

	if p.CompiledExpr != nil {
		out, err := expr.Run(p.CompiledExpr, map[string]any{"identity": attributes})
		if err != nil {
			addResult(p.Expr, false, fmt.Sprintf("error evaluating expression: %v", err))
		} else if b, ok := out.(bool); !ok || !b {
			addResult(p.Expr, false, "expression evaluated to false")
		} else {
			addResult(p.Expr, true, "")
		}
	}

	return result
}

func flattenConditionResult(out *[]core.ConditionResult, cr core.ConditionResult, depth int) {
	indent := strings.Repeat("  ", depth)

	if cr.Expression != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + cr.Expression,
			Matched:    cr.Matched,
			Reason:     cr.Reason,
		})
		return
	}

	if cr.Label != "" {
		*out = append(*out, core.ConditionResult{
			Expression: indent + "[" + cr.Label + "]",
			Matched:    cr.Matched,
		})
	}

	for _, child := range cr.Children {
		flattenConditionResult(out, child, depth+1)
	}
}

func evaluateCondition(cond core.Condition, attributes map[string]any) core.ConditionResult {
	switch {
	case len(cond.All) > 0:
		res := core.ConditionResult{Matched: true, Label: "AND"}
		for _, child := range cond.All {
			cr := evaluateCondition(child, attributes)
			res.Children = append(res.Children, cr)
			res.Matched = res.Matched && cr.Matched
		}
		return res

	case len(cond.Any) > 0:
		res := core.ConditionResult{Label: "OR"}
		for _, child := range cond.Any {
			cr := evaluateCondition(child, attributes)
			res.Children = append(res.Children, cr)
			res.Matched = res.Matched || cr.Matched
		}
		return res

	case cond.Not != nil:
		cr := evaluateCondition(*cond.Not, attributes)
		return core.ConditionResult{
			Matched:  !cr.Matched,
			Label:    "NOT",
			Children: []core.ConditionResult{cr},
		}

	case cond.Key != "":
		return evaluateLeaf(cond, attributes)
	}

	return core.ConditionResult{Matched: true, Label: "(empty)"}
}

func evaluateLeaf(cond core.Condition, attributes map[string]any) core.ConditionResult {
	val, exists := attributes[cond.Key]

	leaf := func(passed bool, reason string) core.ConditionResult {
		return core.ConditionResult{
			Matched:    passed,
			Expression: fmt.Sprintf("%s %s %v", cond.Key, cond.Operator, cond.Value),
			Reason:     reason,
		}
	}

	if cond.Operator == core.OpExists {
		if !exists {
			return leaf(false, fmt.Sprintf("attribute '%s' does not exist", cond.Key))
		}
		return leaf(true, "")
	}
	if !exists {
		return leaf(false, fmt.Sprintf("attribute '%s' missing", cond.Key))
	}

	switch cond.Operator {
	case core.OpEqual:
		if !reflect.DeepEqual(val, cond.Value) {
			return leaf(false, fmt.Sprintf("expected '%v' to equal '%v'", val, cond.Value))
		}
		return leaf(true, "")

	case core.OpNotEqual:
		if reflect.DeepEqual(val, cond.Value) {
			return leaf(false, fmt.Sprintf("expected '%v' to differ from '%v'", val, cond.Value))
		}
		return leaf(true, "")

	case core.OpContains:
		if !contains(val, cond.Value) {
			return leaf(false, fmt.Sprintf("'%v' does not contain '%v'", val, cond.Value))
		}
		return leaf(true, "")

	case core.OpIn:
		if !contains(cond.Value, val) {
			return leaf(false, fmt.Sprintf("value '%v' not in list '%v'", val, cond.Value))
		}
		return leaf(true, "")
	}

	return leaf(false, fmt.Sprintf("unknown operator '%s' in condition", cond.Operator))
}

func contains(container, item any) bool {
	if str, ok := container.(string); ok {
		if sub, ok := item.(string); ok {
			return strings.Contains(str, sub)
		}
	}

	v := reflect.ValueOf(container)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), item) {
				return true
			}
		}
	}
	return false
}
