package oidcauth

import (
	"context"
	"fmt"
)

// ImpersonationAuthProvider lets a trusted downstream service act on behalf
// of an already authenticated user by exchanging the user's access token via
// the act-as-user grant.  The caller must present both the user's token and
// a client referrer identifying the delegating application; requests missing
// either are rejected before any network call.
type ImpersonationAuthProvider struct {
	*provider

	actAsUserClient *ActAsUserClient
}

var _ AuthProvider = (*ImpersonationAuthProvider)(nil)

func NewImpersonationAuthProvider(settings *Settings, opt ...Option) (*ImpersonationAuthProvider, error) {
	const op = "NewImpersonationAuthProvider"
	base, err := newProvider(DefaultProviderName, settings, false, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ImpersonationAuthProvider{
		provider:        base,
		actAsUserClient: NewActAsUserClient(settings, base.client, base.logger),
	}, nil
}

func (p *ImpersonationAuthProvider) Init(ctx context.Context) error {
	return p.init(ctx)
}

func (p *ImpersonationAuthProvider) Authenticate(ctx context.Context, session *UserSession, req *Request) (*AuthResult, error) {
	const op = "ImpersonationAuthProvider.Authenticate"
	if session == nil || req == nil {
		return nil, fmt.Errorf("%s: session or request is nil: %w", op, ErrNilParameter)
	}

	userToken := req.OAuthToken
	if userToken == "" {
		userToken = bearerToken(req.Header)
	}
	if userToken == "" {
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}

	clientReferer := req.OAuthVerifier
	if clientReferer == "" {
		clientReferer = req.Referrer
	}
	if clientReferer == "" {
		return nil, unauthorizedError(op, ErrMissingClientReferer)
	}

	record := session.TokenRecord(p.name)
	tokens := p.actAsUserClient.RequestToken(ctx, userToken, clientReferer)
	if tokens.IsEmpty() {
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}
	record.AccessToken = tokens.AccessToken
	record.RefreshToken = tokens.RefreshToken
	if tokens.IdToken != "" {
		record.IdToken = tokens.IdToken
	}

	if !p.validToken(ctx, record) {
		record.clearTokens()
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}

	session.Authenticated = true
	p.onAuthenticated(ctx, session, record)
	return &AuthResult{Authenticated: true}, nil
}

func (p *ImpersonationAuthProvider) IsAuthorized(ctx context.Context, session *UserSession, req *Request) bool {
	return p.isAuthorized(ctx, session)
}
