package store

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy are the rules a new password must satisfy.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireDigit     bool
	RequireLowercase bool
	RequireUppercase bool
	RequireSymbol    bool
}

// DefaultPasswordPolicy only enforces length.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: 6,
		MaxLength: 100,
	}
}

// PasswordPolicyError lists every rule a password violated.
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("password rejected: %v", e.Problems)
}

// Check returns a *PasswordPolicyError if password violates the policy.
func (p PasswordPolicy) Check(password string) error {
	var problems []string

	n := utf8.RuneCountInString(password)
	if n < p.MinLength {
		problems = append(problems, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		problems = append(problems, fmt.Sprintf("Passwords must be at most %d characters.", p.MaxLength))
	}

	var digit, lower, upper, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		default:
			symbol = true
		}
	}
	if p.RequireDigit && !digit {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLowercase && !lower {
		problems = append(problems, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUppercase && !upper {
		problems = append(problems, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if p.RequireSymbol && !symbol {
		problems = append(problems, "Passwords must have at least one non alphanumeric character.")
	}

	if len(problems) > 0 {
		return &PasswordPolicyError{Problems: problems}
	}
	return nil
}
