package oidcauth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// GrantTypeActAsUser is the custom token-exchange grant.  The identity
// provider re-validates the presented access token, confirms the client
// referer matches one of the original client's registered redirect URIs and
// re-issues a token for the same subject scoped to this client.
const GrantTypeActAsUser = "act-as-user"

// ActAsUserClient performs the act-as-user token exchange.
type ActAsUserClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewActAsUserClient creates an act-as-user grant client.
func NewActAsUserClient(settings *Settings, client *http.Client, logger hclog.Logger) *ActAsUserClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ActAsUserClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// RequestToken exchanges an already-valid access token plus the requesting
// client's referer URL for a token scoped to this client, returning an empty
// result after logging on any failure.
func (c *ActAsUserClient) RequestToken(ctx context.Context, accessToken, clientReferer string) TokenResult {
	form := url.Values{
		"grant_type":     {GrantTypeActAsUser},
		"scope":          {c.settings.scope()},
		"access_token":   {accessToken},
		"client_referer": {clientReferer},
	}

	resp, err := requestToken(ctx, c.client, c.settings, form)
	if err != nil {
		c.logger.Error("error requesting act-as-user token", "error", err)
		return TokenResult{}
	}
	if resp.IsError() {
		c.logger.Error("error response while validating the access token", "error", resp.Error, "description", resp.ErrorDescription)
		return TokenResult{}
	}
	return TokenResult{AccessToken: resp.AccessToken}
}
