package oidcauth

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

// AuthCodeClient exchanges an authorization code for an access/refresh token
// pair (grant_type=authorization_code).
type AuthCodeClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewAuthCodeClient creates an authorization-code exchange client.
func NewAuthCodeClient(settings *Settings, client *http.Client, logger hclog.Logger) *AuthCodeClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AuthCodeClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// RequestToken exchanges code at the token endpoint, returning an empty
// result after logging on any failure.
func (c *AuthCodeClient) RequestToken(ctx context.Context, code, callbackURL string) TokenResult {
	secret, err := c.settings.SecretStore.ClientSecret(ctx, c.settings.ClientID)
	if err != nil {
		c.logger.Error("error resolving client secret", "client_id", c.settings.ClientID, "error", err)
		return TokenResult{}
	}

	conf := oauth2.Config{
		ClientID:     c.settings.ClientID,
		ClientSecret: secret,
		RedirectURL:  callbackURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.settings.TokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	token, err := conf.Exchange(sdkhttp.OidcClientContext(ctx, c.client), code)
	if err != nil {
		c.logger.Error("error exchanging authorization code", "error", err)
		return TokenResult{}
	}

	result := TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		result.IdToken = idToken
	}
	return result
}
