package oidcauth

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

// PasswordClient requests an access token with the resource-owner password
// grant.
type PasswordClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewPasswordClient creates a resource-owner password grant client.
func NewPasswordClient(settings *Settings, client *http.Client, logger hclog.Logger) *PasswordClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PasswordClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// RequestToken requests an access token for username/password plus the
// configured scopes, returning an empty result after logging on any failure.
func (c *PasswordClient) RequestToken(ctx context.Context, username, password string) TokenResult {
	secret, err := c.settings.SecretStore.ClientSecret(ctx, c.settings.ClientID)
	if err != nil {
		c.logger.Error("error resolving client secret", "client_id", c.settings.ClientID, "error", err)
		return TokenResult{}
	}

	conf := oauth2.Config{
		ClientID:     c.settings.ClientID,
		ClientSecret: secret,
		Scopes:       c.settings.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.settings.TokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	token, err := conf.PasswordCredentialsToken(sdkhttp.OidcClientContext(ctx, c.client), username, password)
	if err != nil {
		c.logger.Error("error requesting resource owner password token", "username", username, "error", err)
		return TokenResult{}
	}
	result := TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if raw, ok := token.Extra("id_token").(string); ok {
		result.IdToken = raw
	}
	return result
}
