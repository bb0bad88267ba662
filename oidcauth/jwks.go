package oidcauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/square/go-jose.v2"
)

// KeysetClient fetches the provider's JSON Web Key Set.
type KeysetClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewKeysetClient creates a client for the settings' resolved jwks URL.
func NewKeysetClient(settings *Settings, client *http.Client, logger hclog.Logger) *KeysetClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &KeysetClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// SigningKeys returns the provider's signing keys.  A network error, a
// non-success response or an empty key set is logged and surfaces as an
// empty slice; the id_token validator then fails closed.
func (c *KeysetClient) SigningKeys(ctx context.Context) []jose.JSONWebKey {
	jwksURL := c.settings.JwksEndpoint()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		c.logger.Error("error building json web key set request", "url", jwksURL, "error", err)
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("error requesting json web key set", "url", jwksURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("error requesting json web key set", "url", jwksURL, "error", fmt.Sprintf("status %d", resp.StatusCode))
		return nil
	}

	var keyset jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keyset); err != nil {
		c.logger.Error("error parsing json web key set", "url", jwksURL, "error", err)
		return nil
	}

	keys := make([]jose.JSONWebKey, 0, len(keyset.Keys))
	for _, k := range keyset.Keys {
		if k.Use == "enc" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		c.logger.Warn("json web key set contains no signing keys", "url", jwksURL)
	}
	return keys
}
