// relyingparty provides a collection of related packages which implement the
// relying-party side of OAuth2 / OIDC authentication: interactive
// authorization-code and hybrid logins, the client-credentials,
// resource-owner password and act-as-user token exchanges, plus the
// supporting discovery, signing-key, token-introspection and id_token
// validation clients.
//
// See README.md
package relyingparty
