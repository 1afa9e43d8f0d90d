package store

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darmiel/idgate/internal/core"
)

func newTestStore(t *testing.T, opts ...Option) *InMemoryCredentialStore {
	t.Helper()
	s, err := NewInMemoryCredentialStore(append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc, err := s.Register(ctx, core.Registration{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "User@Example.com",
		Password:  "secret1",
		Address:   "Main St 1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, []string{core.RoleUser}, acc.Roles)

	got, err := s.Verify(ctx, "user@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = s.Verify(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = s.Verify(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	fetched, err := s.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", fetched.FirstName)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRegister_ExplicitRoles(t *testing.T) {
	s := newTestStore(t)
	acc, err := s.Register(context.Background(), core.Registration{
		Email:    "admin@example.com",
		Password: "adminpass",
		Roles:    []string{core.RoleAdmin, core.RoleUser},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{core.RoleAdmin, core.RoleUser}, acc.Roles)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Register(ctx, core.Registration{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = s.Register(ctx, core.Registration{Email: " A@EXAMPLE.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, s.Count())
}

func TestRegister_PasswordPolicy(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Register(context.Background(), core.Registration{Email: "a@example.com", Password: "abc"})
	var pErr *PasswordPolicyError
	require.ErrorAs(t, err, &pErr)
	assert.NotEmpty(t, pErr.Problems)
	assert.Zero(t, s.Count())
}

func TestRegister_PasswordsBeyondBcryptLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	passwords := map[string]string{
		"72 bytes":         strings.Repeat("a", 72),
		"73 bytes":         strings.Repeat("b", 73),
		"100 bytes":        strings.Repeat("c", 100),
		"multi-byte runes": strings.Repeat("\U0001F511", 20),
	}
	for name, password := range passwords {
		t.Run(name, func(t *testing.T) {
			email := strings.ReplaceAll(name, " ", "-") + "@example.com"
			_, err := s.Register(ctx, core.Registration{Email: email, Password: password})
			require.NoError(t, err)

			_, err = s.Verify(ctx, email, password)
			require.NoError(t, err)

			// bcrypt alone would ignore everything past byte 72
			_, err = s.Verify(ctx, email, password+"x")
			assert.ErrorIs(t, err, ErrInvalidPassword)
		})
	}
}

func TestVerify_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Register(ctx, core.Registration{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	acc, err := s.Verify(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	acc.Roles[0] = core.RoleAdmin

	again, err := s.Verify(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, []string{core.RoleUser}, again.Roles)
}

func TestConcurrentRegister(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register(context.Background(), core.Registration{Email: "same@example.com", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, s.Count())
}

func TestPasswordPolicy_Check(t *testing.T) {
	strict := PasswordPolicy{MinLength: 8, MaxLength: 100, RequireDigit: true, RequireUppercase: true, RequireLowercase: true, RequireSymbol: true}

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		problems int
	}{
		{name: "default ok", policy: DefaultPasswordPolicy(), password: "secret"},
		{name: "default too short", policy: DefaultPasswordPolicy(), password: "abc", problems: 1},
		{name: "strict ok", policy: strict, password: "Secr3t!pass"},
		{name: "strict lowercase only", policy: strict, password: "short", problems: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.password)
			if tt.problems == 0 {
				assert.NoError(t, err)
				return
			}
			var pErr *PasswordPolicyError
			require.ErrorAs(t, err, &pErr)
			assert.Len(t, pErr.Problems, tt.problems)
		})
	}
}
