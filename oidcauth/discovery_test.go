package oidcauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

func TestDiscoveryClient_Discover(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	tp := StartTestProvider(t)

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)

	c := NewDiscoveryClient(settings, client, nil)
	result := c.Discover(context.Background())
	require.NotNil(result)

	assert.Equal(tp.Addr()+"/auth", result.AuthorizeURL)
	assert.Equal(tp.Addr()+"/token", result.TokenURL)
	assert.Equal(tp.Addr()+"/userinfo", result.UserInfoURL)
	assert.Equal(tp.Addr()+"/jwks", result.JwksURL)
	assert.Equal(tp.Addr()+"/introspect", result.IntrospectURL)
}

func TestDiscoveryClient_Discover_disabled(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	tp := StartTestProvider(t)
	tp.DisableDiscovery()

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)

	c := NewDiscoveryClient(settings, client, nil)
	assert.Nil(c.Discover(context.Background()))
}

func TestDiscoveryClient_Discover_partialDocument(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	tp := StartTestProvider(t)
	tp.OmitIntrospectionFromDiscovery()

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)

	c := NewDiscoveryClient(settings, client, nil)
	result := c.Discover(context.Background())
	require.NotNil(result)

	assert.Empty(result.IntrospectURL)
	assert.Equal(tp.Addr()+"/token", result.TokenURL)

	// a missing discovered value falls through to the well-known default
	settings.SetDiscovery(result)
	assert.Equal(tp.Addr()+"/connect/introspect", settings.IntrospectEndpoint())
	assert.Equal(tp.Addr()+"/token", settings.TokenEndpoint())
}
