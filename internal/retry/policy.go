package retry

import (
	"fmt"
	"math"
	"time"
)

// DefaultPolicyName is the name of the policy used by outbound calls that do
// not ask for a specific one.
const DefaultPolicyName = "default"

// BackoffFunc returns the delay before the given retry (1-based).
type BackoffFunc func(retry int) time.Duration

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Name string

	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int

	Backoff BackoffFunc
}

// Exponential returns base^retry units, so with base 2 and a unit of one
// second the delays are 2s, 4s, 8s, ...
func Exponential(base float64, unit time.Duration) BackoffFunc {
	return func(retry int) time.Duration {
		return time.Duration(math.Pow(base, float64(retry)) * float64(unit))
	}
}

// NewExponentialPolicy returns a policy with base^n second delays.
// base must be positive, a zero base would disable the delays entirely.
func NewExponentialPolicy(name string, maxAttempts int, base float64) (Policy, error) {
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return Policy{}, fmt.Errorf("retry policy '%s': base must be positive, got %v", name, base)
	}
	p := Policy{
		Name:        name,
		MaxAttempts: maxAttempts,
		Backoff:     Exponential(base, time.Second),
	}
	return p, p.Validate()
}

func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("retry policy missing name")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy '%s': max_attempts must be at least 1, got %d", p.Name, p.MaxAttempts)
	}
	if p.Backoff == nil {
		return fmt.Errorf("retry policy '%s': missing backoff function", p.Name)
	}
	return nil
}

// schedule adapts a Policy to the backoff.BackOff interface.
type schedule struct {
	fn    BackoffFunc
	retry int
}

func (s *schedule) NextBackOff() time.Duration {
	s.retry++
	return s.fn(s.retry)
}

func (s *schedule) Reset() {
	s.retry = 0
}
