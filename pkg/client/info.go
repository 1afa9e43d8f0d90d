package client

import (
	"context"

	"github.com/darmiel/idgate/internal/api"
	"github.com/darmiel/idgate/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().setPath(api.AboutRoute).build(), &info)
	return &info, correlation, err
}
