package oidcauth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
)

// RefreshClient exchanges a refresh token for a new access/refresh token
// pair (grant_type=refresh_token).
type RefreshClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
	now      func() time.Time
}

// NewRefreshClient creates a refresh grant client.
func NewRefreshClient(settings *Settings, client *http.Client, logger hclog.Logger) *RefreshClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RefreshClient{
		settings: settings,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

// RefreshToken exchanges refreshToken for a new token pair.  ExpiresAt is
// the absolute expiry computed as now + expires_in.  On any failure it logs
// and returns an empty result; callers must then clear both tokens, forcing
// re-authentication.
func (c *RefreshClient) RefreshToken(ctx context.Context, refreshToken string) TokenResult {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	resp, err := requestToken(ctx, c.client, c.settings, form)
	if err != nil {
		c.logger.Error("error refreshing the access token", "error", err)
		return TokenResult{}
	}
	if resp.IsError() {
		c.logger.Error("error response while refreshing the access token", "error", resp.Error, "description", resp.ErrorDescription)
		return TokenResult{}
	}
	return TokenResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}
