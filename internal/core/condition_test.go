package core

import (
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCondition_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Condition
	}{
		{
			name: "explicit syntax",
			input: `key: email
operator: contains
value: "@example.com"`,
			want: Condition{Key: "email", Operator: OpContains, Value: "@example.com"},
		},
		{
			name: "explicit syntax without operator defaults to equals",
			input: `key: sub
value: abc`,
			want: Condition{Key: "sub", Operator: OpEqual, Value: "abc"},
		},
		{
			name:  "shorthand key value",
			input: `email: jane@example.com`,
			want:  Condition{Key: "email", Operator: OpEqual, Value: "jane@example.com"},
		},
		{
			name:  "shorthand operator map",
			input: `roles: { contains: Admin }`,
			want:  Condition{Key: "roles", Operator: OpContains, Value: "Admin"},
		},
		{
			name: "nested any",
			input: `
any:
  - email: a@example.com
  - email: b@example.com
`,
			want: Condition{
				Any: []Condition{
					{Key: "email", Operator: OpEqual, Value: "a@example.com"},
					{Key: "email", Operator: OpEqual, Value: "b@example.com"},
				},
			},
		},
		{
			name: "not with nested all",
			input: `
not:
  all:
    - roles: { contains: Admin }
    - key: sub
      operator: exists
`,
			want: Condition{
				Not: &Condition{
					All: []Condition{
						{Key: "roles", Operator: OpContains, Value: "Admin"},
						{Key: "sub", Operator: OpExists},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Condition
			if err := yaml.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("UnmarshalYAML() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UnmarshalYAML() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCondition_UnmarshalYAML_ImplicitAnd(t *testing.T) {
	var got Condition
	if err := yaml.Unmarshal([]byte(`{ email: a@example.com, sub: "1" }`), &got); err != nil {
		t.Fatalf("UnmarshalYAML() error = %v", err)
	}

	want := Condition{
		All: []Condition{
			{Key: "email", Operator: OpEqual, Value: "a@example.com"},
			{Key: "sub", Operator: OpEqual, Value: "1"},
		},
	}
	// shorthand keys come from a map, so their order is not stable
	byKey := cmpopts.SortSlices(func(a, b Condition) bool {
		return strings.Compare(a.Key, b.Key) < 0
	})
	if diff := cmp.Diff(want, got, byKey); diff != "" {
		t.Errorf("UnmarshalYAML() mismatch (-want +got):\n%s", diff)
	}
}

func TestCondition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cond    *Condition
		wantErr bool
	}{
		{name: "nil", cond: nil},
		{name: "leaf", cond: &Condition{Key: "sub", Operator: OpEqual, Value: "x"}},
		{name: "empty", cond: &Condition{}, wantErr: true},
		{name: "bad operator", cond: &Condition{Key: "sub", Operator: "like"}, wantErr: true},
		{
			name:    "mixed kinds",
			cond:    &Condition{Key: "sub", Operator: OpEqual, Any: []Condition{{Key: "a", Operator: OpExists}}},
			wantErr: true,
		},
		{
			name:    "invalid nested child",
			cond:    &Condition{All: []Condition{{Key: "a", Operator: "nope"}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
