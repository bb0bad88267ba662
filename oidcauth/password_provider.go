package oidcauth

import (
	"context"
	"fmt"
)

// PasswordAuthProvider authenticates with the resource-owner password grant.
// Credentials come from the request when present and otherwise fall back to
// the statically configured username and password, which suits trusted
// service accounts acting as a fixed user.
type PasswordAuthProvider struct {
	*provider

	passwordClient *PasswordClient
}

var _ AuthProvider = (*PasswordAuthProvider)(nil)

func NewPasswordAuthProvider(settings *Settings, opt ...Option) (*PasswordAuthProvider, error) {
	const op = "NewPasswordAuthProvider"
	base, err := newProvider(DefaultProviderName, settings, false, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &PasswordAuthProvider{
		provider:       base,
		passwordClient: NewPasswordClient(settings, base.client, base.logger),
	}, nil
}

func (p *PasswordAuthProvider) Init(ctx context.Context) error {
	return p.init(ctx)
}

func (p *PasswordAuthProvider) Authenticate(ctx context.Context, session *UserSession, req *Request) (*AuthResult, error) {
	const op = "PasswordAuthProvider.Authenticate"
	if session == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}

	username, password := p.settings.Username, p.settings.Password
	if req != nil {
		session.ReferrerURL = referrerURL(req)
		if req.Username != "" {
			username, password = req.Username, req.Password
		}
	}
	if username == "" || password == "" {
		return nil, unauthorizedError(op, fmt.Errorf("missing username or password: %w", ErrInvalidParameter))
	}

	record := session.TokenRecord(p.name)
	tokens := p.passwordClient.RequestToken(ctx, username, password)
	if tokens.IsEmpty() {
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}
	record.AccessToken = tokens.AccessToken
	record.RefreshToken = tokens.RefreshToken
	if tokens.IdToken != "" {
		record.IdToken = tokens.IdToken
	}

	session.Authenticated = true
	session.Username = username
	p.onAuthenticated(ctx, session, record)
	return &AuthResult{Authenticated: true}, nil
}

func (p *PasswordAuthProvider) IsAuthorized(ctx context.Context, session *UserSession, req *Request) bool {
	return p.isAuthorized(ctx, session)
}
