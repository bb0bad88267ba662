package oidcauth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImpersonationProvider(t *testing.T, tp *TestProvider) *ImpersonationAuthProvider {
	t.Helper()
	require := require.New(t)

	tp.SetClientCreds("client-id", "secret")
	tp.SetAllowedRedirectURIs([]string{"https://app.example.com/"})

	p, err := NewImpersonationAuthProvider(testProviderSettings(tp), testHTTPClientOpt(t, tp))
	require.NoError(err)
	require.NoError(p.Init(context.Background()))
	return p
}

func TestImpersonationAuthProvider_Authenticate(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	tp := StartTestProvider(t)
	tp.SetExpectedActAsToken("user-access-token")
	p := testImpersonationProvider(t, tp)

	session := &UserSession{}
	req := &Request{
		OAuthToken:    "user-access-token",
		OAuthVerifier: "https://app.example.com/",
	}
	result, err := p.Authenticate(ctx, session, req)
	require.NoError(err)
	assert.True(result.Authenticated)
	assert.True(session.Authenticated)

	record := session.TokenRecord(p.Name())
	assert.Equal("test-access-token", record.AccessToken)

	// identity mapped from userinfo for the impersonated user
	assert.Equal("alice", session.Username)
	assert.Equal([]string{"admin"}, session.Roles)
}

func TestImpersonationAuthProvider_bearerHeaderFallback(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	tp := StartTestProvider(t)
	tp.SetExpectedActAsToken("user-access-token")
	p := testImpersonationProvider(t, tp)

	req := &Request{
		Header:   http.Header{"Authorization": {"Bearer user-access-token"}},
		Referrer: "https://app.example.com/",
	}
	result, err := p.Authenticate(ctx, &UserSession{}, req)
	require.NoError(err)
	assert.True(result.Authenticated)
}

func TestImpersonationAuthProvider_rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing-access-token", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testImpersonationProvider(t, tp)

		_, err := p.Authenticate(ctx, &UserSession{}, &Request{Referrer: "https://app.example.com/"})
		require.Error(err)
		assert.True(errors.Is(err, ErrUnauthorized))
		assert.Contains(err.Error(), ErrMissingAccessToken.Error())
	})

	t.Run("missing-client-referer", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testImpersonationProvider(t, tp)

		_, err := p.Authenticate(ctx, &UserSession{}, &Request{OAuthToken: "user-access-token"})
		require.Error(err)
		assert.True(errors.Is(err, ErrUnauthorized))
		assert.Contains(err.Error(), ErrMissingClientReferer.Error())
	})

	t.Run("unregistered-referer", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testImpersonationProvider(t, tp)

		req := &Request{
			OAuthToken:    "user-access-token",
			OAuthVerifier: "https://evil.example.com/",
		}
		_, err := p.Authenticate(ctx, &UserSession{}, req)
		require.Error(err)
		assert.True(errors.Is(err, ErrUnauthorized))
	})

	t.Run("exchange-rejected", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetExpectedActAsToken("a-different-token")
		p := testImpersonationProvider(t, tp)

		req := &Request{
			OAuthToken:    "user-access-token",
			OAuthVerifier: "https://app.example.com/",
		}
		_, err := p.Authenticate(ctx, &UserSession{}, req)
		require.Error(err)
		assert.True(errors.Is(err, ErrUnauthorized))
	})
}
