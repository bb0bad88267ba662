package oidcauth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/square/go-jose.v2/jwt"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

// DefaultProviderName is the provider name bound to token records when the
// host does not choose one.
const DefaultProviderName = "IdentityServer"

// AuthResult is a provider's answer for one inbound request: either the
// caller must be redirected to the identity provider, or the session is
// authenticated.
type AuthResult struct {
	Authenticated bool
	RedirectURL   string
}

// AuthProvider is the capability set shared by the four flow variants.
type AuthProvider interface {
	// Name returns the provider name used to key token records.
	Name() string

	// Init performs the one-time startup work: metadata discovery and,
	// for the interactive variant, the signing key fetch.  It must be
	// called once before the per-request operations.
	Init(ctx context.Context) error

	// Authenticate answers "is this caller authenticated" for one inbound
	// request, mutating the session's token record along the way.  It
	// returns ErrUnauthorized (possibly wrapped) when the request must be
	// rejected.
	Authenticate(ctx context.Context, session *UserSession, req *Request) (*AuthResult, error)

	// IsAuthorized re-checks an already authenticated session, refreshing
	// the access token when possible.  A failed check clears the session's
	// tokens.
	IsAuthorized(ctx context.Context, session *UserSession, req *Request) bool
}

// provider carries the pieces every flow variant shares: resolved settings,
// the validity/refresh state machine and claim mapping.
type provider struct {
	name     string
	settings *Settings
	logger   hclog.Logger
	client   *http.Client
	now      func() time.Time

	discoveryClient  *DiscoveryClient
	introspectClient *IntrospectClient
	refreshClient    *RefreshClient
	userInfoClient   *UserInfoClient

	// validToken is the variant's access token validity check; defaults to
	// the introspection-driven check.
	validToken func(ctx context.Context, record *TokenRecord) bool
}

func newProvider(name string, settings *Settings, interactive bool, opt ...Option) (*provider, error) {
	if name == "" {
		name = DefaultProviderName
	}
	if settings != nil {
		settings.applyDefaults()
	}
	if err := settings.Validate(interactive); err != nil {
		return nil, err
	}

	opts := getProviderOpts(opt...)
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = sdkhttp.NewClient(settings.ProviderCA)
		if err != nil {
			return nil, ErrInvalidCACert
		}
	}
	now := opts.withNowFunc
	if now == nil {
		now = time.Now
	}

	p := &provider{
		name:     name,
		settings: settings,
		logger:   logger,
		client:   client,
		now:      now,

		discoveryClient:  NewDiscoveryClient(settings, client, logger),
		introspectClient: NewIntrospectClient(settings, client, logger),
		refreshClient:    NewRefreshClient(settings, client, logger),
		userInfoClient:   NewUserInfoClient(settings, client, logger),
	}
	p.refreshClient.now = now
	p.validToken = p.isValidAccessToken
	return p, nil
}

func (p *provider) Name() string { return p.name }

// init fetches the discovery document once and caches the result on the
// settings for the provider's lifetime.  Discovery failure is not fatal:
// the settings fall back to static configuration.
func (p *provider) init(ctx context.Context) error {
	p.settings.SetDiscovery(p.discoveryClient.Discover(ctx))
	return nil
}

// isValidAccessToken is the shared token validity state machine:
// introspection success is valid, a transport or protocol error is invalid,
// an inactive token with a refresh token in hand triggers a refresh attempt.
func (p *provider) isValidAccessToken(ctx context.Context, record *TokenRecord) bool {
	if record == nil || record.AccessToken == "" {
		return false
	}
	switch p.introspectClient.IsValidToken(ctx, record.AccessToken) {
	case ValidationSuccess:
		return true
	case ValidationExpired:
		if record.RefreshToken != "" {
			return p.refreshTokens(ctx, record)
		}
	}
	return false
}

// refreshTokens attempts a refresh grant.  Success replaces both tokens and
// the cached expiry; failure clears both tokens, forcing a full
// re-authentication rather than looping.
func (p *provider) refreshTokens(ctx context.Context, record *TokenRecord) bool {
	result := p.refreshClient.RefreshToken(ctx, record.RefreshToken)
	if result.AccessToken != "" && result.RefreshToken != "" {
		record.AccessToken = result.AccessToken
		record.RefreshToken = result.RefreshToken
		record.RefreshTokenExpiry = result.ExpiresAt
		return true
	}
	record.clearTokens()
	return false
}

func (p *provider) isAuthorized(ctx context.Context, session *UserSession) bool {
	if session == nil || !session.Authenticated {
		return false
	}
	record := session.TokenRecord(p.name)
	if record.AccessToken == "" {
		return false
	}

	ok := p.validToken(ctx, record)
	if !ok {
		record.clearTokens()
	}
	session.Authenticated = ok
	return ok
}

// onAuthenticated runs after any successful token acquisition: it mirrors
// the id_token claims onto the record and maps userinfo claims onto the
// session.
func (p *provider) onAuthenticated(ctx context.Context, session *UserSession, record *TokenRecord) {
	p.loadIdTokenClaims(record)
	p.loadUserAuthInfo(ctx, session, record)
}

// loadIdTokenClaims mirrors the standard id_token claims onto the token
// record for later inspection.  The id_token was already validated by the
// time this runs, so claims are decoded without re-verification.
func (p *provider) loadIdTokenClaims(record *TokenRecord) {
	if record.IdToken == "" {
		return
	}
	parsed, err := jwt.ParseSigned(record.IdToken)
	if err != nil {
		p.logger.Error("error parsing id_token claims", "error", err)
		return
	}
	var std jwt.Claims
	var extra struct {
		AuthTime *jwt.NumericDate `json:"auth_time"`
		Nonce    string           `json:"nonce"`
	}
	if err := parsed.UnsafeClaimsWithoutVerification(&std, &extra); err != nil {
		p.logger.Error("error decoding id_token claims", "error", err)
		return
	}

	record.Issuer = std.Issuer
	record.Subject = std.Subject
	if len(std.Audience) > 0 {
		record.Audience = std.Audience[0]
	}
	if std.Expiry != nil {
		record.Expiration = strconv.FormatInt(int64(*std.Expiry), 10)
	}
	if std.IssuedAt != nil {
		record.IssuedAt = strconv.FormatInt(int64(*std.IssuedAt), 10)
	}
	if extra.AuthTime != nil {
		record.AuthenticationTime = strconv.FormatInt(int64(*extra.AuthTime), 10)
	}
	if extra.Nonce != "" {
		record.Nonce = extra.Nonce
	}
}

// loadUserAuthInfo fetches userinfo claims for the access token and maps
// them onto the record and session.  An empty claim set degrades to "no
// extra identity info".
func (p *provider) loadUserAuthInfo(ctx context.Context, session *UserSession, record *TokenRecord) {
	if record.AccessToken == "" {
		return
	}
	claims := p.userInfoClient.GetClaims(ctx, record.AccessToken)
	if len(claims) == 0 {
		return
	}
	mapClaims(p.settings, session, record, claims)
	loadSessionIdentity(session, record)
}
