package oidcauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

func testProviderSettings(tp *TestProvider) *Settings {
	s := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	s.TokenURL = tp.Addr() + "/token"
	s.IntrospectURL = tp.Addr() + "/introspect"
	s.UserInfoURL = tp.Addr() + "/userinfo"
	s.JwksURL = tp.Addr() + "/jwks"
	return s
}

func testHTTPClientOpt(t *testing.T, tp *TestProvider) Option {
	t.Helper()
	client, err := sdkhttp.NewClient(tp.CACert())
	require.New(t).NoError(err)
	return WithHTTPClient(client)
}

func TestProvider_isValidAccessToken(t *testing.T) {
	t.Parallel()

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		record := &TokenRecord{AccessToken: "test-access-token"}
		assert.True(p.isValidAccessToken(context.Background(), record))
	})

	t.Run("no-access-token", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		assert.False(p.isValidAccessToken(context.Background(), &TokenRecord{}))
		assert.False(p.isValidAccessToken(context.Background(), nil))
	})

	t.Run("inactive-with-refresh-token", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectActive(false)
		tp.SetExpectedRefreshToken("old-refresh-token")
		tp.SetReplyTokens("new-access-token", "new-refresh-token")
		tp.SetReplyExpiresIn(3600)

		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		p, err := newProvider("", testProviderSettings(tp), false,
			testHTTPClientOpt(t, tp), WithNow(func() time.Time { return now }))
		require.NoError(err)

		record := &TokenRecord{
			AccessToken:  "stale-access-token",
			RefreshToken: "old-refresh-token",
		}
		assert.True(p.isValidAccessToken(context.Background(), record))
		assert.Equal("new-access-token", record.AccessToken)
		assert.Equal("new-refresh-token", record.RefreshToken)
		assert.Equal(now.Add(3600*time.Second), record.RefreshTokenExpiry)
	})

	t.Run("inactive-without-refresh-token", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectActive(false)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		record := &TokenRecord{AccessToken: "stale-access-token"}
		assert.False(p.isValidAccessToken(context.Background(), record))
	})

	t.Run("refresh-failure-clears-tokens", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectActive(false)
		tp.SetExpectedRefreshToken("a-different-refresh-token")
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		record := &TokenRecord{
			AccessToken:  "stale-access-token",
			RefreshToken: "old-refresh-token",
		}
		assert.False(p.isValidAccessToken(context.Background(), record))
		assert.Empty(record.AccessToken)
		assert.Empty(record.RefreshToken)
	})

	t.Run("introspection-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectErrs(true)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		record := &TokenRecord{
			AccessToken:  "test-access-token",
			RefreshToken: "old-refresh-token",
		}
		// a transport or protocol failure is invalid, never refreshable
		assert.False(p.isValidAccessToken(context.Background(), record))
		assert.Equal("old-refresh-token", record.RefreshToken)
	})
}

func TestProvider_isAuthorized(t *testing.T) {
	t.Parallel()

	t.Run("valid-session", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		session := &UserSession{Authenticated: true}
		session.TokenRecord(p.Name()).AccessToken = "test-access-token"
		assert.True(p.isAuthorized(context.Background(), session))
		assert.True(session.Authenticated)
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		assert.False(p.isAuthorized(context.Background(), nil))
		assert.False(p.isAuthorized(context.Background(), &UserSession{}))

		// authenticated session without an access token
		assert.False(p.isAuthorized(context.Background(), &UserSession{Authenticated: true}))
	})

	t.Run("revoked-token-clears-session", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectActive(false)
		p, err := newProvider("", testProviderSettings(tp), false, testHTTPClientOpt(t, tp))
		require.NoError(err)

		session := &UserSession{Authenticated: true}
		record := session.TokenRecord(p.Name())
		record.AccessToken = "revoked-access-token"

		assert.False(p.isAuthorized(context.Background(), session))
		assert.False(session.Authenticated)
		assert.Empty(record.AccessToken)
	})
}

func TestNewProvider_validation(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	_, err := newProvider("", NewSettings("", "", nil), false)
	assert.Error(err)

	// interactive flows require a callback URL at construction time
	s := NewSettings("https://ids.example.com/", "client-id", NewStaticSecretStore("secret"))
	_, err = newProvider("", s, true)
	assert.Error(err)
}
