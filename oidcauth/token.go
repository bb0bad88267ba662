package oidcauth

import (
	"time"
)

// Claim is a single (type, value) pair returned by the provider, either
// inside an id_token or from the userinfo endpoint.  Multi-valued claims are
// represented as repeated Claims with the same Type.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RedactedToken is the redacted string for token material.
const RedactedToken = "[REDACTED: token]"

// TokenRecord is the mutable per-session credential holder.  It is owned
// exclusively by the session it is attached to: created on the first
// authentication attempt for a (session, provider) pair, mutated in place on
// refresh or re-authentication and never shared across sessions.  The host's
// session store persists it; its JSON form round-trips byte for byte.
type TokenRecord struct {
	Provider string `json:"provider,omitempty"`

	AccessToken        string    `json:"access_token,omitempty"`
	RefreshToken       string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry"`
	IdToken            string    `json:"id_token,omitempty"`
	Code               string    `json:"code,omitempty"`

	// Standard claims decoded from the id_token.
	Issuer             string `json:"issuer,omitempty"`
	Subject            string `json:"subject,omitempty"`
	Audience           string `json:"audience,omitempty"`
	Expiration         string `json:"expiration,omitempty"`
	IssuedAt           string `json:"issued_at,omitempty"`
	AuthenticationTime string `json:"authentication_time,omitempty"`
	Nonce              string `json:"nonce,omitempty"`

	// Identity fields populated from userinfo claims.
	UserID      string `json:"user_id,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`

	// Claims retains every claim returned by the provider verbatim, in the
	// order they were received.
	Claims []Claim `json:"claims,omitempty"`
}

// String redacts the record's token material.
func (t *TokenRecord) String() string {
	return "TokenRecord{Provider: " + t.Provider + ", Subject: " + t.Subject + ", Tokens: " + RedactedToken + "}"
}

// clearTokens removes the credential material, forcing a full
// re-authentication on the next request.
func (t *TokenRecord) clearTokens() {
	t.AccessToken = ""
	t.RefreshToken = ""
	t.RefreshTokenExpiry = time.Time{}
}

// TokenResult is the outcome of one token endpoint grant request.  Clients
// convert provider error responses into an empty result after logging, so an
// empty result is the error sentinel.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	IdToken      string
	ExpiresAt    time.Time
}

// IsEmpty reports whether the grant request failed to produce an access
// token.
func (r TokenResult) IsEmpty() bool {
	return r.AccessToken == ""
}

// AuthenticateResult holds the code and id_token parsed out of a callback
// request.  It lives only for the duration of one callback-handling call.
type AuthenticateResult struct {
	Code    string
	IdToken string
}

// IsEmpty reports whether either callback credential is missing.
func (r AuthenticateResult) IsEmpty() bool {
	return r.Code == "" || r.IdToken == ""
}

// TokenValidation is the tri-state outcome of introspecting an access token.
// It drives the refresh decision: an inactive token is treated as expired
// and refreshable, a transport or protocol failure is not.
type TokenValidation int

const (
	ValidationError TokenValidation = iota
	ValidationExpired
	ValidationSuccess
)

func (v TokenValidation) String() string {
	switch v {
	case ValidationError:
		return "error"
	case ValidationExpired:
		return "expired"
	case ValidationSuccess:
		return "success"
	default:
		return "unknown"
	}
}
