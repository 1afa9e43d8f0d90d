package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/idgate/internal/core"
)

func TestRegistry_Authorize(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	admin := core.NewIdentity("a", "admin@example.com", core.RoleAdmin)
	user := core.NewIdentity("u", "user@example.com", core.RoleUser)
	both := core.NewIdentity("b", "both@example.com", core.RoleAdmin, core.RoleUser)
	noRoles := core.NewIdentity("n", "none@example.com")

	tests := []struct {
		name     string
		identity *core.Identity
		policy   string
		want     bool
	}{
		{name: "admin is not user", identity: admin, policy: core.PolicyUser, want: false},
		{name: "user is user", identity: user, policy: core.PolicyUser, want: true},
		{name: "user is not admin", identity: user, policy: core.PolicyAdmin, want: false},
		{name: "admin is admin", identity: admin, policy: core.PolicyAdmin, want: true},
		{name: "both roles pass user", identity: both, policy: core.PolicyUser, want: true},
		{name: "anonymous is not authenticated", identity: nil, policy: core.PolicyAnyAuthenticatedUser, want: false},
		{name: "anonymous is not admin", identity: nil, policy: core.PolicyAdmin, want: false},
		{name: "empty identity is anonymous", identity: &core.Identity{}, policy: core.PolicyAnyAuthenticatedUser, want: false},
		{name: "no roles is authenticated", identity: noRoles, policy: core.PolicyAnyAuthenticatedUser, want: true},
		{name: "no roles is not user", identity: noRoles, policy: core.PolicyUser, want: false},
		{name: "unknown policy", identity: admin, policy: "Root", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.Authorize(tt.identity, tt.policy))
		})
	}
}

func TestRegistry_AuthorizeAll(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	user := core.NewIdentity("u", "user@example.com", core.RoleUser)

	denied, ok := reg.AuthorizeAll(user, core.PolicyAnyAuthenticatedUser, core.PolicyAdmin)
	assert.False(t, ok)
	assert.Equal(t, core.PolicyAdmin, denied)

	denied, ok = reg.AuthorizeAll(nil, core.PolicyAnyAuthenticatedUser, core.PolicyAdmin)
	assert.False(t, ok)
	assert.Equal(t, core.PolicyAnyAuthenticatedUser, denied)

	_, ok = reg.AuthorizeAll(user, core.PolicyAnyAuthenticatedUser, core.PolicyUser)
	assert.True(t, ok)

	_, ok = reg.AuthorizeAll(nil)
	assert.True(t, ok, "no policies admits everyone")
}

func TestRegistry_OpenPolicy(t *testing.T) {
	reg, err := NewDefaultRegistry(core.Policy{Name: "Public"})
	require.NoError(t, err)

	assert.True(t, reg.Authorize(nil, "Public"))
}

func TestRegistry_ConditionAndExpr(t *testing.T) {
	reg, err := NewDefaultRegistry(
		core.Policy{
			Name:                 "ExampleStaff",
			RequireAuthenticated: true,
			Condition:            &core.Condition{Key: "email", Operator: core.OpContains, Value: "@example.com"},
		},
		core.Policy{
			Name:                 "BillingAdmin",
			RequireAuthenticated: true,
			RequiredRoles:        []string{core.RoleAdmin},
			Expr:                 `"Billing" in identity.roles`,
		},
	)
	require.NoError(t, err)

	staff := core.NewIdentity("s", "staff@example.com", core.RoleAdmin)
	outsider := core.NewIdentity("o", "o@other.org", core.RoleAdmin, "Billing")

	assert.True(t, reg.Authorize(staff, "ExampleStaff"))
	assert.False(t, reg.Authorize(outsider, "ExampleStaff"))
	assert.False(t, reg.Authorize(staff, "BillingAdmin"))
	assert.True(t, reg.Authorize(outsider, "BillingAdmin"))
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		policies []core.Policy
	}{
		{name: "duplicate name", policies: []core.Policy{{Name: "A"}, {Name: "A"}}},
		{name: "empty name", policies: []core.Policy{{}}},
		{name: "bad expression", policies: []core.Policy{{Name: "A", Expr: "identity.("}}},
		{name: "bad condition", policies: []core.Policy{{Name: "A", Condition: &core.Condition{}}}},
		{name: "clash with builtin", policies: core.DefaultPolicies()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefaultRegistry(tt.policies...)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Trace(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	user := core.NewIdentity("u", "user@example.com", core.RoleUser)
	trace := reg.Trace(user, core.PolicyAnyAuthenticatedUser, core.PolicyAdmin, "Missing")

	want := core.EvaluationTrace{
		Identity: core.NewIdentity("u", "user@example.com", core.RoleUser),
		PolicyResults: []core.PolicyResult{
			{
				PolicyName:  core.PolicyAnyAuthenticatedUser,
				Description: "caller must present a valid token",
				Matched:     true,
				ConditionResults: []core.ConditionResult{
					{Matched: true, Expression: "authenticated"},
				},
			},
			{
				PolicyName:  core.PolicyAdmin,
				Description: "caller must hold the Admin role",
				ConditionResults: []core.ConditionResult{
					{Matched: true, Expression: "authenticated"},
					{Expression: "roles intersect [Admin]", Reason: "caller has roles [User]"},
				},
			},
			{
				PolicyName: "Missing",
				ConditionResults: []core.ConditionResult{
					{Expression: "policy exists", Reason: "unknown policy: 'Missing'"},
				},
			},
		},
		FinalDecision: false,
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("Trace() mismatch (-want +got):\n%s", diff)
	}

	full := reg.Trace(user)
	assert.Len(t, full.PolicyResults, len(reg.Names()))
}

func TestRegistry_Require(t *testing.T) {
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)

	assert.NoError(t, reg.Require(core.PolicyAdmin, core.PolicyUser))
	assert.ErrorIs(t, reg.Require("Nope"), ErrUnknownPolicy)
}
