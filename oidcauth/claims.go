package oidcauth

import (
	"github.com/authkit/relyingparty/oidcauth/internal/strutils"
)

// Standard OIDC claim types mapped onto the token record and session.
const (
	ClaimSubject            = "sub"
	ClaimPreferredUserName  = "preferred_username"
	ClaimEmail              = "email"
	ClaimPhoneNumber        = "phone_number"
	ClaimGivenName          = "given_name"
	ClaimFamilyName         = "family_name"
	ClaimNonce              = "nonce"
	ClaimAudience           = "aud"
	ClaimExpiration         = "exp"
	ClaimIssuedAt           = "iat"
	ClaimAuthenticationTime = "auth_time"
)

// mapClaims distributes claims across the token record and the session:
// standard identity claims populate the record's identity fields, claims
// whose type appears in the configured role/permission name lists are copied
// into the session's collections, and every claim is retained verbatim on
// the record.
func mapClaims(settings *Settings, session *UserSession, record *TokenRecord, claims []Claim) {
	for _, claim := range claims {
		switch claim.Type {
		case ClaimSubject:
			record.UserID = claim.Value
		case ClaimPreferredUserName:
			record.UserName = claim.Value
		case ClaimEmail:
			record.Email = claim.Value
		case ClaimPhoneNumber:
			record.PhoneNumber = claim.Value
		case ClaimGivenName:
			record.FirstName = claim.Value
		case ClaimFamilyName:
			record.LastName = claim.Value
		}

		if strutils.StrListContains(settings.RoleClaimNames, claim.Type) {
			session.AddRole(claim.Value)
		}
		if strutils.StrListContains(settings.PermissionClaimNames, claim.Type) {
			session.AddPermission(claim.Value)
		}

		record.Claims = append(record.Claims, claim)
	}
}

// loadSessionIdentity copies the record's identity fields onto the session;
// the session keeps its existing value when the record has none.
func loadSessionIdentity(session *UserSession, record *TokenRecord) {
	if record.UserName != "" {
		session.Username = record.UserName
	}
	if record.Email != "" {
		session.Email = record.Email
	}
	if record.PhoneNumber != "" {
		session.PhoneNumber = record.PhoneNumber
	}
	if record.FirstName != "" {
		session.FirstName = record.FirstName
	}
	if record.LastName != "" {
		session.LastName = record.LastName
	}
}
