package oidcauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// IntrospectClient asks the identity provider whether an opaque access token
// is currently active (RFC 7662).
type IntrospectClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewIntrospectClient creates an introspection client.
func NewIntrospectClient(settings *Settings, client *http.Client, logger hclog.Logger) *IntrospectClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &IntrospectClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// IsValidToken introspects accessToken.  The tri-state result drives the
// refresh decision: an inactive token is ambiguous with true revocation and
// is treated uniformly as "needs refresh".
func (c *IntrospectClient) IsValidToken(ctx context.Context, accessToken string) TokenValidation {
	secret, err := c.settings.SecretStore.ClientSecret(ctx, c.settings.ClientID)
	if err != nil {
		c.logger.Error("error resolving client secret", "client_id", c.settings.ClientID, "error", err)
		return ValidationError
	}

	form := url.Values{
		"token":         {accessToken},
		"client_id":     {c.settings.ClientID},
		"client_secret": {secret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.IntrospectEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("error building introspection request", "error", err)
		return ValidationError
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("error occurred while validating the access token", "error", err)
		return ValidationError
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Error("error reading introspection response", "error", err)
		return ValidationError
	}

	var result struct {
		Active bool   `json:"active"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("error parsing introspection response", "error", err)
		return ValidationError
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		c.logger.Error("error occurred while validating the access token", "status", resp.StatusCode, "error", result.Error)
		return ValidationError
	}
	if !result.Active {
		c.logger.Error("access token is not active")
		return ValidationExpired
	}
	return ValidationSuccess
}
