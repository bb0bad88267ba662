package oidcauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

// DiscoveryResult holds the endpoint URLs pulled from the provider's OIDC
// discovery document.  It is populated once at provider initialization and
// immutable afterwards.
type DiscoveryResult struct {
	AuthorizeURL  string
	IntrospectURL string
	UserInfoURL   string
	TokenURL      string
	JwksURL       string
}

// DiscoveryClient fetches the identity provider's OIDC discovery document.
type DiscoveryClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewDiscoveryClient creates a discovery client for the settings' realm.
func NewDiscoveryClient(settings *Settings, client *http.Client, logger hclog.Logger) *DiscoveryClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DiscoveryClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// Discover fetches and parses the discovery document.  On any network or
// parse failure it logs the error and returns nil; callers must treat nil as
// "fall back to static configuration", not as fatal.
func (c *DiscoveryClient) Discover(ctx context.Context) *DiscoveryResult {
	issuer := strings.TrimSuffix(c.settings.Realm, "/")

	provider, err := oidc.NewProvider(sdkhttp.OidcClientContext(ctx, c.client), issuer)
	if err != nil {
		c.logger.Error("error requesting discovery document", "realm", c.settings.Realm, "error", err)
		return nil
	}

	// introspection_endpoint is not part of go-oidc's endpoint surface, so
	// pull everything out of the raw document.
	var doc struct {
		AuthorizeURL  string `json:"authorization_endpoint"`
		TokenURL      string `json:"token_endpoint"`
		UserInfoURL   string `json:"userinfo_endpoint"`
		JwksURL       string `json:"jwks_uri"`
		IntrospectURL string `json:"introspection_endpoint"`
	}
	if err := provider.Claims(&doc); err != nil {
		c.logger.Error("error parsing discovery document", "realm", c.settings.Realm, "error", err)
		return nil
	}

	return &DiscoveryResult{
		AuthorizeURL:  doc.AuthorizeURL,
		IntrospectURL: doc.IntrospectURL,
		UserInfoURL:   doc.UserInfoURL,
		TokenURL:      doc.TokenURL,
		JwksURL:       doc.JwksURL,
	}
}
