package oidcauth

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"

	"github.com/authkit/relyingparty/oidcauth/internal/strutils"
)

// IdTokenValidator cryptographically validates signed id_tokens: signature
// against the provider's published signing keys, audience, issuer, expiry
// and the replay-defense nonce check.
//
// Validation state (signing keys, audience, valid issuers) is computed once
// by Init during provider initialization and read-only afterwards.
type IdTokenValidator struct {
	settings *Settings
	keyset   *KeysetClient
	logger   hclog.Logger
	now      func() time.Time

	keys     []jose.JSONWebKey
	audience string
	issuers  []string
	algs     []Alg
}

// NewIdTokenValidator creates a validator which fetches its signing keys
// from keyset during Init.
func NewIdTokenValidator(settings *Settings, keyset *KeysetClient, logger hclog.Logger) *IdTokenValidator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &IdTokenValidator{
		settings: settings,
		keyset:   keyset,
		logger:   logger,
		now:      time.Now,
	}
}

// Init fetches the signing keys and snapshots the audience and issuer
// expectations.  An empty key set is logged; the validator then fails closed
// (every token is rejected) rather than skipping signature checks.
func (v *IdTokenValidator) Init(ctx context.Context) {
	v.keys = v.keyset.SigningKeys(ctx)
	if len(v.keys) == 0 {
		v.logger.Warn("unable to load json web key set", "url", v.settings.JwksEndpoint())
	}
	v.audience = v.settings.ClientID
	v.issuers = v.settings.ValidIssuers()
	v.algs = v.settings.SupportedSigningAlgs
}

// IsValidIdToken validates rawIdToken against the snapshot taken at Init.
// The nonce persisted on the token record at challenge time must match the
// token's nonce claim; a mismatch is rejected before any signature work.
func (v *IdTokenValidator) IsValidIdToken(record *TokenRecord, rawIdToken string) error {
	const op = "IdTokenValidator.IsValidIdToken"
	if rawIdToken == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}

	parsed, err := jwt.ParseSigned(rawIdToken)
	if err != nil {
		v.logger.Error("error parsing id_token", "error", err)
		return fmt.Errorf("%s: cannot parse id_token: %w", op, ErrIdTokenVerificationFailed)
	}

	var unverified struct {
		Nonce string `json:"nonce"`
	}
	if err := parsed.UnsafeClaimsWithoutVerification(&unverified); err != nil {
		v.logger.Error("error decoding id_token claims", "error", err)
		return fmt.Errorf("%s: cannot decode id_token claims: %w", op, ErrIdTokenVerificationFailed)
	}
	if record != nil && record.Nonce != "" && unverified.Nonce != record.Nonce {
		v.logger.Error("nonce in id_token does not match the nonce created for the login request - potential replay attack")
		return fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}

	if len(v.keys) == 0 {
		return fmt.Errorf("%s: %w", op, ErrMissingSigningKeys)
	}

	for _, h := range parsed.Headers {
		if !v.supportedAlg(Alg(h.Algorithm)) {
			return fmt.Errorf("%s: signing algorithm %s: %w", op, h.Algorithm, ErrInvalidSignature)
		}
	}

	var claims jwt.Claims
	verified := false
	for _, key := range v.keys {
		if err := parsed.Claims(key, &claims); err == nil {
			verified = true
			break
		}
	}
	if !verified {
		v.logger.Error("no published signing key validated the id_token signature")
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	if !claims.Audience.Contains(v.audience) {
		return fmt.Errorf("%s: audience %q: %w", op, claims.Audience, ErrInvalidAudience)
	}
	if !strutils.StrListContains(v.issuers, claims.Issuer) {
		return fmt.Errorf("%s: issuer %q: %w", op, claims.Issuer, ErrInvalidIssuer)
	}
	if claims.Expiry != nil && claims.Expiry.Time().Before(v.now()) {
		return fmt.Errorf("%s: %w", op, ErrExpiredToken)
	}
	return nil
}

func (v *IdTokenValidator) supportedAlg(a Alg) bool {
	for _, alg := range v.algs {
		if alg == a {
			return true
		}
	}
	return false
}
