package oidcauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

func testKeysetClient(t *testing.T, tp *TestProvider) *KeysetClient {
	t.Helper()
	require := require.New(t)

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	settings.JwksURL = tp.Addr() + "/jwks"

	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)
	return NewKeysetClient(settings, client, nil)
}

func TestKeysetClient_SigningKeys(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	tp := StartTestProvider(t)
	c := testKeysetClient(t, tp)

	keys := c.SigningKeys(context.Background())
	assert.Len(keys, 1)
}

func TestKeysetClient_SigningKeys_unavailable(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	tp := StartTestProvider(t)
	tp.DisableJWKS()
	c := testKeysetClient(t, tp)

	assert.Nil(c.SigningKeys(context.Background()))
}

func TestKeysetClient_SigningKeys_invalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	tp := StartTestProvider(t)
	tp.InvalidJWKS()
	c := testKeysetClient(t, tp)

	assert.Nil(c.SigningKeys(context.Background()))
}
