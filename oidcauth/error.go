package oidcauth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrInvalidFlow       = errors.New("invalid authorization flow")
	ErrIdGeneratorFailed = errors.New("id generation failed")

	// ErrUnauthorized is returned by providers whenever a request cannot be
	// authenticated.  Hosts are expected to convert it into an HTTP 401.
	ErrUnauthorized = errors.New("not authenticated")

	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrMissingAuthCode           = errors.New("authorization code is missing")
	ErrMissingAccessToken        = errors.New("access token is missing")
	ErrMissingClientReferer      = errors.New("client referer is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidSignature          = errors.New("invalid signature")
	ErrInvalidIssuer             = errors.New("invalid issuer")
	ErrInvalidAudience           = errors.New("invalid audience")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrExpiredToken              = errors.New("token is expired")
	ErrUserSessionMismatch       = errors.New("request username does not match session username")
	ErrMissingSigningKeys        = errors.New("no signing keys")
	ErrSecretStoreFailed         = errors.New("client secret lookup failed")
)

// unauthorizedError wraps a rejection cause into the ErrUnauthorized chain
// the host converts into an HTTP 401.  The cause stays in the message for
// diagnostics.
func unauthorizedError(op string, cause error) error {
	return fmt.Errorf("%s: %v: %w", op, cause, ErrUnauthorized)
}

