package core

// EvaluationTrace captures the detailed trace of a policy chain evaluation.
type EvaluationTrace struct {
	// CorrelationID of the request that produced the trace.
	CorrelationID string `yaml:"correlation_id" json:"correlation_id"`

	// Identity being evaluated, nil for anonymous callers.
	Identity *Identity `yaml:"identity" json:"identity"`

	// PolicyResults contains the result of every evaluated policy, in order.
	PolicyResults []PolicyResult `yaml:"policy_results" json:"policy_results"`

	// FinalDecision is true only if every policy admitted the identity.
	FinalDecision bool `yaml:"final_decision" json:"final_decision"`
}

// PolicyResult captures why a specific policy admitted or rejected a caller.
type PolicyResult struct {
	PolicyName       string            `yaml:"policy_name" json:"policy_name"`
	Description      string            `yaml:"description" json:"description"`
	Matched          bool              `yaml:"matched" json:"matched"`
	ConditionResults []ConditionResult `yaml:"condition_results" json:"condition_results,omitempty"`
}
