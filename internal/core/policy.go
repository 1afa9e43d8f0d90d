package core

import "github.com/expr-lang/expr/vm"

// Built-in policy names.
const (
	PolicyAdmin                = "Admin"
	PolicyUser                 = "User"
	PolicyAnyAuthenticatedUser = "AnyAuthenticatedUser"
)

// Policy is a named admission rule over an Identity.
//
// A request is admitted when all of the following hold:
//   - it is authenticated (only if RequireAuthenticated is set)
//   - its role set intersects RequiredRoles, or RequiredRoles is empty
//   - Condition matches (if set)
//   - Expr evaluates to true (if set)
type Policy struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`

	RequiredRoles        []string `yaml:"roles" json:"roles,omitempty"`
	RequireAuthenticated bool     `yaml:"authenticated" json:"authenticated"`

	// Condition is an optional condition tree over the identity attributes.
	Condition *Condition `yaml:"condition" json:"condition,omitempty"`

	// Expr is an optional boolean expression. The identity is available as "identity".
	Expr string `yaml:"expr" json:"expr,omitempty"`

	// CompiledExpr holds the pre-compiled form of Expr.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`
}

// DefaultPolicies returns the policies every deployment registers.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Name:                 PolicyAdmin,
			Description:          "caller must hold the Admin role",
			RequiredRoles:        []string{RoleAdmin},
			RequireAuthenticated: true,
		},
		{
			Name:                 PolicyUser,
			Description:          "caller must hold the User role",
			RequiredRoles:        []string{RoleUser},
			RequireAuthenticated: true,
		},
		{
			Name:                 PolicyAnyAuthenticatedUser,
			Description:          "caller must present a valid token",
			RequireAuthenticated: true,
		},
	}
}
