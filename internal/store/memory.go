package store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/darmiel/idgate/internal/core"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrDuplicateEmail  = errors.New("email is already taken")
)

var _ core.CredentialStore = (*InMemoryCredentialStore)(nil)

// InMemoryCredentialStore keeps bcrypt-hashed accounts in memory.
type InMemoryCredentialStore struct {
	mu       sync.RWMutex
	accounts map[string]*core.Account // by ID
	byEmail  map[string]string        // normalized email -> ID

	policy       PasswordPolicy
	cost         int
	defaultRoles []string

	// dummyHash is compared against for unknown emails so that both
	// failure paths take roughly the same time.
	dummyHash []byte
}

type Option func(*InMemoryCredentialStore)

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *InMemoryCredentialStore) {
		s.cost = cost
	}
}

// WithPasswordPolicy replaces the default password policy.
func WithPasswordPolicy(p PasswordPolicy) Option {
	return func(s *InMemoryCredentialStore) {
		s.policy = p
	}
}

// WithDefaultRoles sets the roles granted to self-registered accounts.
func WithDefaultRoles(roles ...string) Option {
	return func(s *InMemoryCredentialStore) {
		s.defaultRoles = roles
	}
}

func NewInMemoryCredentialStore(opts ...Option) (*InMemoryCredentialStore, error) {
	s := &InMemoryCredentialStore{
		accounts:     make(map[string]*core.Account),
		byEmail:      make(map[string]string),
		policy:       DefaultPasswordPolicy(),
		cost:         bcrypt.DefaultCost,
		defaultRoles: []string{core.RoleUser},
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := bcrypt.GenerateFromPassword(bcryptInput(uuid.NewString()), s.cost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// bcryptInput pre-hashes the password so that passwords longer than bcrypt's
// 72 byte input limit are accepted and not truncated.
func bcryptInput(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func (s *InMemoryCredentialStore) Verify(_ context.Context, email, password string) (*core.Account, error) {
	s.mu.RLock()
	acc, ok := s.lookup(email)
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, bcryptInput(password))
		return nil, ErrAccountNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, bcryptInput(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return cloneAccount(acc), nil
}

func (s *InMemoryCredentialStore) Register(_ context.Context, reg core.Registration) (*core.Account, error) {
	if err := s.policy.Check(reg.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	roles := reg.Roles
	if len(roles) == 0 {
		roles = s.defaultRoles
	}

	acc := &core.Account{
		ID:           uuid.NewString(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        strings.TrimSpace(reg.Email),
		Address:      reg.Address,
		Roles:        core.NormalizeRoles(roles),
		CreatedAt:    time.Now(),
		PasswordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(acc.Email)
	if _, exists := s.byEmail[key]; exists {
		return nil, ErrDuplicateEmail
	}
	s.accounts[acc.ID] = acc
	s.byEmail[key] = acc.ID

	return cloneAccount(acc), nil
}

func (s *InMemoryCredentialStore) Get(_ context.Context, id string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

// Count returns the number of stored accounts.
func (s *InMemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// lookup must be called with s.mu held.
func (s *InMemoryCredentialStore) lookup(email string) (*core.Account, bool) {
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, false
	}
	acc, ok := s.accounts[id]
	return acc, ok
}

func cloneAccount(a *core.Account) *core.Account {
	c := *a
	c.Roles = slices.Clone(a.Roles)
	return &c
}
