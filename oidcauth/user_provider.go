package oidcauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// UserAuthProvider implements the interactive authorization-code/hybrid
// login.  Per request it is a three-state machine: an initial request is
// redirected to the provider's authorize endpoint with a fresh state and
// nonce, a callback request has its credentials parsed and exchanged, and an
// authenticated request re-runs the validity check.
type UserAuthProvider struct {
	*provider

	authCodeClient *AuthCodeClient
	keysetClient   *KeysetClient
	validator      *IdTokenValidator
}

var _ AuthProvider = (*UserAuthProvider)(nil)

// NewUserAuthProvider creates the interactive login provider.  A missing
// callback URL is a fatal configuration error: it stops startup here rather
// than failing per-request.
func NewUserAuthProvider(settings *Settings, opt ...Option) (*UserAuthProvider, error) {
	const op = "NewUserAuthProvider"
	base, err := newProvider(DefaultProviderName, settings, true, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &UserAuthProvider{
		provider:       base,
		authCodeClient: NewAuthCodeClient(settings, base.client, base.logger),
	}
	p.keysetClient = NewKeysetClient(settings, base.client, base.logger)
	p.validator = NewIdTokenValidator(settings, p.keysetClient, base.logger)
	p.validator.now = base.now
	base.validToken = p.cachedValidAccessToken
	return p, nil
}

// Init performs discovery and then fetches the signing keys, so that the
// jwks URL benefits from the discovered metadata.  Both results are cached
// for the provider's lifetime.
func (p *UserAuthProvider) Init(ctx context.Context) error {
	if err := p.init(ctx); err != nil {
		return err
	}
	p.validator.Init(ctx)
	return nil
}

func (p *UserAuthProvider) Authenticate(ctx context.Context, session *UserSession, req *Request) (*AuthResult, error) {
	const op = "UserAuthProvider.Authenticate"
	if session == nil || req == nil {
		return nil, fmt.Errorf("%s: session or request is nil: %w", op, ErrNilParameter)
	}

	// A login attempt for a different user than the one already bound to
	// this session is rejected before any network call.
	if req.Username != "" && session.Username != "" && !strings.EqualFold(req.Username, session.Username) {
		return nil, unauthorizedError(op, ErrUserSessionMismatch)
	}

	session.ReferrerURL = referrerURL(req)
	record := session.TokenRecord(p.name)

	if p.isCallbackRequest(req) {
		if err := p.handleCallback(ctx, req, record); err != nil {
			return nil, err
		}
		if !p.validToken(ctx, record) {
			return nil, unauthorizedError(op, ErrMissingAccessToken)
		}
	} else if p.isInitialRequest(ctx, req, record) {
		return p.challengeRedirect(record)
	}

	session.Authenticated = true
	p.onAuthenticated(ctx, session, record)
	return &AuthResult{Authenticated: true}, nil
}

// IsAuthorized re-checks an authenticated session, rejecting first when the
// request names a different user than the session.
func (p *UserAuthProvider) IsAuthorized(ctx context.Context, session *UserSession, req *Request) bool {
	if req != nil && req.Username != "" && session != nil && session.Username != "" &&
		!strings.EqualFold(req.Username, session.Username) {
		return false
	}
	return p.isAuthorized(ctx, session)
}

// isCallbackRequest reports whether the identity provider redirected the
// caller back to us: either the request carries a code query parameter, or
// its absolute URL matches the registered callback URL and its referrer
// matches the realm.
func (p *UserAuthProvider) isCallbackRequest(req *Request) bool {
	if req.Query != nil && req.Query.Get("code") != "" {
		return true
	}
	if req.AbsoluteURL == "" {
		return false
	}
	if !hasPrefixFold(req.AbsoluteURL, p.settings.CallbackURL) {
		return false
	}
	return req.Referrer != "" && hasPrefixFold(req.Referrer, p.settings.Realm)
}

// isInitialRequest reports whether this is the caller's first pass through
// the login flow: no callback markers and no currently valid access token.
func (p *UserAuthProvider) isInitialRequest(ctx context.Context, req *Request, record *TokenRecord) bool {
	if p.isCallbackRequest(req) {
		return false
	}
	return !p.validToken(ctx, record)
}

// handleCallback parses the credentials the provider posted back and
// exchanges the authorization code for an access/refresh token pair.  For
// the hybrid flow the id_token must pass full validation; for the pure code
// flow only the code's presence is required.
func (p *UserAuthProvider) handleCallback(ctx context.Context, req *Request, record *TokenRecord) error {
	const op = "UserAuthProvider.handleCallback"

	authResult := parseAuthenticateResult(req, p.logger)
	switch p.settings.Flow {
	case CodeFlow:
		if authResult.Code == "" {
			return unauthorizedError(op, ErrMissingAuthCode)
		}
	default:
		if authResult.IsEmpty() {
			return unauthorizedError(op, ErrMissingIdToken)
		}
		if err := p.validator.IsValidIdToken(record, authResult.IdToken); err != nil {
			return unauthorizedError(op, err)
		}
	}

	record.IdToken = authResult.IdToken
	record.Code = authResult.Code

	tokens := p.authCodeClient.RequestToken(ctx, authResult.Code, p.settings.CallbackURL)
	if !tokens.IsEmpty() {
		record.AccessToken = tokens.AccessToken
		record.RefreshToken = tokens.RefreshToken
	}
	return nil
}

// challengeRedirect builds the authorize endpoint redirect with a freshly
// generated state and nonce, persisting the nonce on the token record for
// the replay check on the way back.
func (p *UserAuthProvider) challengeRedirect(record *TokenRecord) (*AuthResult, error) {
	const op = "UserAuthProvider.challengeRedirect"

	state, err := NewID("st")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	nonce, err := NewID("n")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{
		"client_id":     {p.settings.ClientID},
		"scope":         {p.settings.scope()},
		"redirect_uri":  {p.settings.CallbackURL},
		"response_type": {p.settings.Flow.responseType()},
		"state":         {state},
		"nonce":         {nonce},
		"response_mode": {"form_post"},
	}
	record.Nonce = nonce

	return &AuthResult{RedirectURL: p.settings.AuthorizeEndpoint() + "?" + q.Encode()}, nil
}

// cachedValidAccessToken short-circuits the shared validity check with the
// locally cached refresh-token expiry before making any network call.
func (p *UserAuthProvider) cachedValidAccessToken(ctx context.Context, record *TokenRecord) bool {
	if record == nil || record.AccessToken == "" {
		return false
	}
	if !record.RefreshTokenExpiry.IsZero() {
		if record.RefreshTokenExpiry.After(p.now()) {
			return true
		}
		if record.RefreshToken != "" {
			return p.refreshTokens(ctx, record)
		}
		return false
	}
	return p.isValidAccessToken(ctx, record)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
