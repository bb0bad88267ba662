package oidcauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkhttp "github.com/authkit/relyingparty/sdk/http"
)

func testValidator(t *testing.T, tp *TestProvider) *IdTokenValidator {
	t.Helper()
	require := require.New(t)

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	settings.JwksURL = tp.Addr() + "/jwks"
	settings.SupportedSigningAlgs = []Alg{ES256}

	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)

	v := NewIdTokenValidator(settings, NewKeysetClient(settings, client, nil), nil)
	v.Init(context.Background())
	return v
}

func TestIdTokenValidator_IsValidIdToken(t *testing.T) {
	t.Parallel()

	tp := StartTestProvider(t)
	_, priv := tp.SigningKeys()
	v := testValidator(t, tp)

	otherTp := StartTestProvider(t)
	_, otherPriv := otherTp.SigningKeys()

	tests := []struct {
		name      string
		record    *TokenRecord
		idToken   string
		wantIsErr error
	}{
		{
			name:    "valid",
			record:  &TokenRecord{Nonce: "n_1"},
			idToken: testIDToken(t, priv, tp.Addr(), "client-id", "n_1", time.Hour),
		},
		{
			name:    "valid-without-recorded-nonce",
			record:  &TokenRecord{},
			idToken: testIDToken(t, priv, tp.Addr(), "client-id", "n_other", time.Hour),
		},
		{
			name:      "missing-token",
			record:    &TokenRecord{},
			idToken:   "",
			wantIsErr: ErrMissingIdToken,
		},
		{
			name:      "nonce-mismatch",
			record:    &TokenRecord{Nonce: "n_1"},
			idToken:   testIDToken(t, priv, tp.Addr(), "client-id", "n_replayed", time.Hour),
			wantIsErr: ErrInvalidNonce,
		},
		{
			name:      "wrong-signing-key",
			record:    &TokenRecord{Nonce: "n_1"},
			idToken:   testIDToken(t, otherPriv, tp.Addr(), "client-id", "n_1", time.Hour),
			wantIsErr: ErrInvalidSignature,
		},
		{
			name:      "wrong-audience",
			record:    &TokenRecord{Nonce: "n_1"},
			idToken:   testIDToken(t, priv, tp.Addr(), "other-client", "n_1", time.Hour),
			wantIsErr: ErrInvalidAudience,
		},
		{
			name:      "wrong-issuer",
			record:    &TokenRecord{Nonce: "n_1"},
			idToken:   testIDToken(t, priv, "https://evil.example.com", "client-id", "n_1", time.Hour),
			wantIsErr: ErrInvalidIssuer,
		},
		{
			name:      "expired",
			record:    &TokenRecord{Nonce: "n_1"},
			idToken:   testIDToken(t, priv, tp.Addr(), "client-id", "n_1", -time.Hour),
			wantIsErr: ErrExpiredToken,
		},
		{
			name:      "not-a-jwt",
			record:    &TokenRecord{},
			idToken:   "garbage",
			wantIsErr: ErrIdTokenVerificationFailed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			err := v.IsValidIdToken(tt.record, tt.idToken)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
		})
	}
}

func TestIdTokenValidator_failsClosedWithoutKeys(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	tp := StartTestProvider(t)
	_, priv := tp.SigningKeys()
	tp.DisableJWKS()

	v := testValidator(t, tp)
	err := v.IsValidIdToken(&TokenRecord{}, testIDToken(t, priv, tp.Addr(), "client-id", "", time.Hour))
	require.Error(err)
	assert.True(errors.Is(err, ErrMissingSigningKeys))
}

func TestIdTokenValidator_rejectsUnlistedAlgorithm(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	tp := StartTestProvider(t)
	_, priv := tp.SigningKeys()

	settings := NewSettings(tp.Addr(), "client-id", NewStaticSecretStore("secret"))
	settings.JwksURL = tp.Addr() + "/jwks"
	settings.SupportedSigningAlgs = []Alg{RS256}

	client, err := sdkhttp.NewClient(tp.CACert())
	require.NoError(err)

	v := NewIdTokenValidator(settings, NewKeysetClient(settings, client, nil), nil)
	v.Init(context.Background())

	err = v.IsValidIdToken(&TokenRecord{}, testIDToken(t, priv, tp.Addr(), "client-id", "", time.Hour))
	require.Error(err)
	assert.True(errors.Is(err, ErrInvalidSignature))
}
