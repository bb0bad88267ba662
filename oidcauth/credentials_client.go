package oidcauth

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

// CredentialsClient requests an access token with the client-credentials
// grant (grant_type=client_credentials).  Machine-to-machine: the result
// carries no refresh token and no user identity.
type CredentialsClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewCredentialsClient creates a client-credentials grant client.
func NewCredentialsClient(settings *Settings, client *http.Client, logger hclog.Logger) *CredentialsClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CredentialsClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// RequestToken requests an access token for the configured client id,
// secret and scopes, returning an empty result after logging on any failure.
func (c *CredentialsClient) RequestToken(ctx context.Context) TokenResult {
	secret, err := c.settings.SecretStore.ClientSecret(ctx, c.settings.ClientID)
	if err != nil {
		c.logger.Error("error resolving client secret", "client_id", c.settings.ClientID, "error", err)
		return TokenResult{}
	}

	conf := clientcredentials.Config{
		ClientID:     c.settings.ClientID,
		ClientSecret: secret,
		TokenURL:     c.settings.TokenEndpoint(),
		Scopes:       c.settings.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	token, err := conf.Token(sdkhttp.OidcClientContext(ctx, c.client))
	if err != nil {
		c.logger.Error("error requesting client credentials token", "error", err)
		return TokenResult{}
	}
	return TokenResult{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken, ExpiresAt: token.Expiry}
}
