package client

import (
	"context"

	"github.com/darmiel/idgate/internal/api"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/service"
)

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	Subject       string
}

// ListAudits retrieves the latest audit entries from the server.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.Subject != "" {
		ub = ub.addQueryParam("subject", opts.Subject)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

// ExplainTrace asks the server why the identity of token passes or fails the
// given policies (all registered ones if none are given).
func (c *Client) ExplainTrace(ctx context.Context, token string, policies ...string) (*core.EvaluationTrace, string, error) {
	var trace core.EvaluationTrace
	correlation, err := c.post(ctx, c.url().setPath(api.ExplainRoute).build(), service.ExplainRequest{
		Token:    token,
		Policies: policies,
	}, &trace)
	return &trace, correlation, err
}

// ListPolicies returns the policies registered on the server.
func (c *Client) ListPolicies(ctx context.Context) ([]core.Policy, string, error) {
	var resp []core.Policy
	correlation, err := c.get(ctx, c.url().setPath(api.ListPoliciesRoute).build(), &resp)
	return resp, correlation, err
}
