package oidcauth

import (
	"context"
	"fmt"
)

// ServiceAuthProvider authenticates the service itself via the
// client-credentials grant.  There is no end user, so no redirects, no
// id_token and no claim mapping; each Authenticate call fetches a fresh
// access token.
type ServiceAuthProvider struct {
	*provider

	credentialsClient *CredentialsClient
}

var _ AuthProvider = (*ServiceAuthProvider)(nil)

func NewServiceAuthProvider(settings *Settings, opt ...Option) (*ServiceAuthProvider, error) {
	const op = "NewServiceAuthProvider"
	base, err := newProvider(DefaultProviderName, settings, false, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ServiceAuthProvider{
		provider:          base,
		credentialsClient: NewCredentialsClient(settings, base.client, base.logger),
	}, nil
}

func (p *ServiceAuthProvider) Init(ctx context.Context) error {
	return p.init(ctx)
}

func (p *ServiceAuthProvider) Authenticate(ctx context.Context, session *UserSession, req *Request) (*AuthResult, error) {
	const op = "ServiceAuthProvider.Authenticate"
	if session == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}

	record := session.TokenRecord(p.name)
	tokens := p.credentialsClient.RequestToken(ctx)
	if tokens.IsEmpty() {
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}
	record.AccessToken = tokens.AccessToken
	record.RefreshToken = tokens.RefreshToken

	if !p.validToken(ctx, record) {
		record.clearTokens()
		return nil, unauthorizedError(op, ErrMissingAccessToken)
	}

	session.Authenticated = true
	return &AuthResult{Authenticated: true}, nil
}

func (p *ServiceAuthProvider) IsAuthorized(ctx context.Context, session *UserSession, req *Request) bool {
	return p.isAuthorized(ctx, session)
}
