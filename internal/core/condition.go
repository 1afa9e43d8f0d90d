package core

import (
	"errors"
	"fmt"
)

// ConditionResult is the evaluated form of a Condition, kept for traces.
type ConditionResult struct {
	Matched bool `json:"matched"`

	// For leaves
	Expression string `json:"expression,omitempty"` // e.g. "roles contains Admin"
	Reason     string `json:"reason,omitempty"`

	// For branching
	Label    string            `json:"label,omitempty"` // e.g. "AND"
	Children []ConditionResult `json:"children,omitempty"`
}

// Operator defines how to compare an identity attribute to a value.
type Operator string

const (
	OpEqual    Operator = "equals"
	OpNotEqual Operator = "not_equals"
	// OpContains means the attribute value contains the given substring or item.
	// for strings: "jane@example.com" contains "@example.com"
	// for lists: ["User", "Admin"] contains "Admin"
	OpContains Operator = "contains"
	// OpIn means the attribute value is one of the given list.
	OpIn     Operator = "in"
	OpExists Operator = "exists"
)

func (op Operator) IsValid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpContains, OpIn, OpExists:
		return true
	default:
		return false
	}
}

// Condition is a tree of checks against an identity's attributes.
// Exactly one of All, Any, Not or Key must be set.
type Condition struct {
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`

	Key      string   `yaml:"key,omitempty" json:"key,omitempty"`
	Operator Operator `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
}

var explicitConditionKeys = map[string]struct{}{
	"all": {}, "any": {}, "not": {}, "key": {}, "operator": {}, "value": {},
}

// UnmarshalYAML accepts both the explicit form
//
//	{ key: email, operator: contains, value: "@example.com" }
//
// and the shorthand forms
//
//	{ email: "jane@example.com" }
//	{ roles: { contains: Admin } }
//
// where several shorthand keys are joined with an implicit AND.
func (c *Condition) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	for k := range raw {
		if _, ok := explicitConditionKeys[k]; ok {
			type plain Condition
			var p plain
			if err := unmarshal(&p); err != nil {
				return err
			}
			*c = Condition(p)
			if c.Key != "" && c.Operator == "" {
				c.Operator = OpEqual
			}
			return nil
		}
	}

	children := make([]Condition, 0, len(raw))
	for k, v := range raw {
		children = append(children, shorthandLeaf(k, v))
	}
	if len(children) == 1 {
		*c = children[0]
	} else {
		*c = Condition{All: children}
	}
	return nil
}

// shorthandLeaf turns "key: value" or "key: {op: value}" into a leaf condition.
func shorthandLeaf(key string, v any) Condition {
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for opKey, opVal := range m {
			if op := Operator(opKey); op.IsValid() {
				return Condition{Key: key, Operator: op, Value: opVal}
			}
		}
	}
	return Condition{Key: key, Operator: OpEqual, Value: v}
}

func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	kinds := 0
	if len(c.All) > 0 {
		kinds++
		for i := range c.All {
			if err := c.All[i].Validate(); err != nil {
				return err
			}
		}
	}
	if len(c.Any) > 0 {
		kinds++
		for i := range c.Any {
			if err := c.Any[i].Validate(); err != nil {
				return err
			}
		}
	}
	if c.Not != nil {
		kinds++
		if err := c.Not.Validate(); err != nil {
			return err
		}
	}
	if c.Key != "" {
		kinds++
		if !c.Operator.IsValid() {
			return fmt.Errorf("invalid operator '%s' for key '%s'", c.Operator, c.Key)
		}
	}

	switch kinds {
	case 0:
		return errors.New("condition is empty; must be one of (all, any, not, key)")
	case 1:
		return nil
	default:
		return fmt.Errorf("condition for key '%s' mixes all/any/not/key; only one is allowed", c.Key)
	}
}
