package oidcauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

func testIntrospectClient(t *testing.T, tp *TestProvider) *IntrospectClient {
	t.Helper()
	require := require.New(t)

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	settings.IntrospectURL = tp.Addr() + "/introspect"

	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)
	return NewIntrospectClient(settings, client, nil)
}

func TestIntrospectClient_IsValidToken(t *testing.T) {
	t.Parallel()

	t.Run("active", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		tp := StartTestProvider(t)
		c := testIntrospectClient(t, tp)
		assert.Equal(ValidationSuccess, c.IsValidToken(context.Background(), "test-access-token"))
	})

	t.Run("inactive", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectActive(false)
		c := testIntrospectClient(t, tp)
		assert.Equal(ValidationExpired, c.IsValidToken(context.Background(), "test-access-token"))
	})

	t.Run("server-error", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		tp := StartTestProvider(t)
		tp.SetIntrospectErrs(true)
		c := testIntrospectClient(t, tp)
		assert.Equal(ValidationError, c.IsValidToken(context.Background(), "test-access-token"))
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		tp := StartTestProvider(t)
		c := testIntrospectClient(t, tp)
		tp.Stop()
		assert.Equal(ValidationError, c.IsValidToken(context.Background(), "test-access-token"))
	})
}
