package oidcauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/authkit/relyingparty/oidcauth/internal/strutils"
)

// AuthorizationFlow selects how the interactive login provider asks the
// identity provider to return credentials on the callback.
type AuthorizationFlow int

const (
	// HybridFlow requests "code id_token"; the id_token returned on the
	// callback must pass full cryptographic validation.
	HybridFlow AuthorizationFlow = iota

	// CodeFlow requests "code" only; the callback is accepted on the
	// presence of the authorization code.
	CodeFlow
)

func (f AuthorizationFlow) responseType() string {
	if f == CodeFlow {
		return "code"
	}
	return "code id_token"
}

// Well-known endpoint suffixes used when neither a static override nor a
// discovered value is available.
const (
	DiscoveryPath = ".well-known/openid-configuration"

	defaultAuthorizePath  = "connect/authorize"
	defaultIntrospectPath = "connect/introspect"
	defaultUserInfoPath   = "connect/userinfo"
	defaultTokenPath      = "connect/token"
	defaultJwksPath       = ".well-known/openid-configuration/jwks"
)

// Settings is the resolved configuration view for one provider instance.
//
// Endpoint URLs resolve lazily with the precedence: static override, then
// discovered metadata, then realm + well-known suffix.  Once a static value
// has been set it is never overridden by discovery.
type Settings struct {
	// Realm is the identity provider's base URL, e.g.
	// "https://ids.example.com/".
	Realm string

	// ClientID is the relying party id registered with the provider.
	ClientID string

	// SecretStore resolves the relying party secret.  Defaults to an empty
	// StaticSecretStore.
	SecretStore SecretStore

	// Scopes to request, e.g. ["openid", "profile"].  Defaults to ["openid"].
	Scopes []string

	// CallbackURL is the host-side URL the provider redirects back to after
	// an interactive login.  Required for the interactive flow.
	CallbackURL string

	// Flow selects the interactive authorization flow.
	Flow AuthorizationFlow

	// RoleClaimNames and PermissionClaimNames configure which claim types
	// are copied into the session's role and permission collections.
	// Default to ["role"] and ["permission"].
	RoleClaimNames       []string
	PermissionClaimNames []string

	// Username and Password are static credentials for the resource-owner
	// password flow's unattended use.
	Username string
	Password string

	// Static endpoint overrides.  A non-empty value wins over discovery.
	AuthorizeURL  string
	IntrospectURL string
	UserInfoURL   string
	TokenURL      string
	JwksURL       string

	// SupportedSigningAlgs restricts the signing algorithms accepted for
	// id_tokens.  Defaults to RS256 and ES256.
	SupportedSigningAlgs []Alg

	// ProviderCA is an optional CA cert PEM to use when sending requests to
	// the provider.
	ProviderCA string

	discovery *DiscoveryResult
}

// NewSettings composes settings for a provider with the package defaults
// applied.
func NewSettings(realm, clientID string, secrets SecretStore) *Settings {
	s := &Settings{
		Realm:       realm,
		ClientID:    clientID,
		SecretStore: secrets,
	}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.SecretStore == nil {
		s.SecretStore = &StaticSecretStore{}
	}
	if len(s.Scopes) == 0 {
		s.Scopes = []string{"openid"}
	}
	if len(s.RoleClaimNames) == 0 {
		s.RoleClaimNames = []string{"role"}
	}
	if len(s.PermissionClaimNames) == 0 {
		s.PermissionClaimNames = []string{"permission"}
	}
	if len(s.SupportedSigningAlgs) == 0 {
		s.SupportedSigningAlgs = defaultSigningAlgs()
	}
}

// Validate the settings.  Interactive is true for flows that redirect the
// caller back to a callback URL; for those a missing CallbackURL is a fatal
// configuration error which must stop startup.
func (s *Settings) Validate(interactive bool) error {
	const op = "Settings.Validate"
	if s == nil {
		return fmt.Errorf("%s: settings are nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if s.Realm == "" {
		result = multierror.Append(result, fmt.Errorf("realm is empty: %w", ErrInvalidParameter))
	} else {
		u, err := url.Parse(s.Realm)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("realm %s is invalid: %w", s.Realm, err))
		case !strutils.StrListContainsFold([]string{"https", "http"}, u.Scheme):
			result = multierror.Append(result, fmt.Errorf("realm %s scheme is not http or https: %w", s.Realm, ErrInvalidParameter))
		}
	}
	if s.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if s.SecretStore == nil {
		result = multierror.Append(result, fmt.Errorf("secret store is nil: %w", ErrNilParameter))
	}
	switch s.Flow {
	case HybridFlow, CodeFlow:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown authorization flow %d: %w", s.Flow, ErrInvalidFlow))
	}
	if interactive && s.CallbackURL == "" {
		result = multierror.Append(result, fmt.Errorf("callback URL is required for an interactive flow: %w", ErrInvalidParameter))
	}
	for _, a := range s.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("unsupported algorithm %s: %w", a, ErrInvalidParameter))
		}
	}
	if result != nil {
		if err := result.ErrorOrNil(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// SetDiscovery caches the discovery result for the provider's lifetime.  A
// nil result leaves static configuration in charge.
func (s *Settings) SetDiscovery(d *DiscoveryResult) {
	s.discovery = d
}

// Discovery returns the cached discovery result, or nil when discovery
// failed or has not run.
func (s *Settings) Discovery() *DiscoveryResult {
	return s.discovery
}

// resolve implements the endpoint precedence rule in one place so that it is
// independently testable: a static override wins, then a discovered value,
// then the default.
func resolve(static, discovered, fallback string) string {
	switch {
	case static != "":
		return static
	case discovered != "":
		return discovered
	default:
		return fallback
	}
}

// realmURL joins the realm with a well-known suffix.
func (s *Settings) realmURL(suffix string) string {
	return strings.TrimSuffix(s.Realm, "/") + "/" + suffix
}

func (s *Settings) AuthorizeEndpoint() string {
	var discovered string
	if s.discovery != nil {
		discovered = s.discovery.AuthorizeURL
	}
	return resolve(s.AuthorizeURL, discovered, s.realmURL(defaultAuthorizePath))
}

func (s *Settings) IntrospectEndpoint() string {
	var discovered string
	if s.discovery != nil {
		discovered = s.discovery.IntrospectURL
	}
	return resolve(s.IntrospectURL, discovered, s.realmURL(defaultIntrospectPath))
}

func (s *Settings) UserInfoEndpoint() string {
	var discovered string
	if s.discovery != nil {
		discovered = s.discovery.UserInfoURL
	}
	return resolve(s.UserInfoURL, discovered, s.realmURL(defaultUserInfoPath))
}

func (s *Settings) TokenEndpoint() string {
	var discovered string
	if s.discovery != nil {
		discovered = s.discovery.TokenURL
	}
	return resolve(s.TokenURL, discovered, s.realmURL(defaultTokenPath))
}

func (s *Settings) JwksEndpoint() string {
	var discovered string
	if s.discovery != nil {
		discovered = s.discovery.JwksURL
	}
	return resolve(s.JwksURL, discovered, s.realmURL(defaultJwksPath))
}

// ValidIssuers returns the issuer values accepted during id_token
// validation.  Both the trailing-slash and bare forms of the realm are
// accepted to tolerate normalization differences between the configured
// realm and the value the provider issues.
func (s *Settings) ValidIssuers() []string {
	realm := s.Realm
	if strings.HasSuffix(realm, "/") {
		return []string{strings.TrimSuffix(realm, "/"), realm}
	}
	return []string{realm + "/", realm}
}

// scope returns the space-delimited scope string for token endpoint
// requests.
func (s *Settings) scope() string {
	return strings.Join(s.Scopes, " ")
}
