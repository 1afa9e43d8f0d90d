package client

import (
	"context"

	"github.com/darmiel/idgate/internal/api"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/service"
)

// Login exchanges local credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, string, error) {
	var resp service.LoginResponse
	correlation, err := c.post(ctx, c.url().setPath(api.APILoginRoute).build(), service.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	return resp.Token, correlation, err
}

// Register creates a new account with the default role.
func (c *Client) Register(ctx context.Context, req service.RegisterRequest) (*service.RegisterResponse, string, error) {
	var resp service.RegisterResponse
	correlation, err := c.post(ctx, c.url().setPath(api.RegisterRoute).build(), req, &resp)
	return &resp, correlation, err
}

// Validate returns the claims of the client's token as seen by the server.
func (c *Client) Validate(ctx context.Context) ([]core.Claim, string, error) {
	var claims []core.Claim
	correlation, err := c.get(ctx, c.url().setPath(api.ValidateRoute).build(), &claims)
	return claims, correlation, err
}

// Profile returns the account of the authenticated caller.
func (c *Client) Profile(ctx context.Context) (*service.ProfileResponse, string, error) {
	var resp service.ProfileResponse
	correlation, err := c.get(ctx, c.url().setPath(api.ProfileRoute).build(), &resp)
	return &resp, correlation, err
}
