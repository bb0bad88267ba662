package oidcauth

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"

	"github.com/authkit/relyingparty/oidcauth/internal/strutils"
)

// TestProvider is a local identity provider that supports the full set of
// relying-party workflows: discovery, signing keys, the interactive
// authorization-code and hybrid flows, the client-credentials, password,
// refresh and act-as-user grants, token introspection and userinfo.  It
// makes writing tests against real HTTP exchanges much easier.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	mu                    sync.Mutex
	clientID              string
	clientSecret          string
	expectedAuthCode      string
	expectedAuthNonce     string
	expectedUsername      string
	expectedPassword      string
	expectedRefreshToken  string
	expectedActAsToken    string
	allowedRedirectURIs   []string
	replyAccessToken      string
	replyRefreshToken     string
	replyExpiresIn        int64
	replyUserinfo         json.RawMessage
	replySubject          string
	customClaims          map[string]interface{}
	introspectActive      bool
	introspectErrs        bool
	omitIDToken           bool
	omitRefreshToken      bool
	disableDiscovery      bool
	disableJWKS           bool
	invalidJWKS           bool
	disableUserInfo       bool
	disableIntrospection  bool
	omitIntrospectFromDoc bool

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider running on a random
// localhost port over TLS.  The server stops via t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()

	p := &TestProvider{
		t: t,
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		replySubject:      "alice",
		replyAccessToken:  "test-access-token",
		replyRefreshToken: "test-refresh-token",
		replyExpiresIn:    3600,
		replyUserinfo: json.RawMessage(`{
			"sub": "alice",
			"preferred_username": "alice",
			"email": "alice@example.com",
			"given_name": "Alice",
			"family_name": "Doe",
			"role": "admin",
			"permission": "read"
		}`),
		introspectActive: true,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
		t.Fatal(err)
	}
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver, which is also the issuer it reports via discovery.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign
// id_tokens.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// SetClientCreds configures the client information the token and
// introspection endpoints will require.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the only authorization code the token
// endpoint will accept.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedAuthNonce configures the nonce embedded in issued id_tokens.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetExpectedPasswordCreds configures the only resource-owner credentials
// the token endpoint will accept.
func (p *TestProvider) SetExpectedPasswordCreds(username, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedUsername = username
	p.expectedPassword = password
}

// SetExpectedRefreshToken configures the only refresh token the token
// endpoint will accept.
func (p *TestProvider) SetExpectedRefreshToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRefreshToken = token
}

// SetExpectedActAsToken configures the only access token the act-as-user
// grant will exchange.
func (p *TestProvider) SetExpectedActAsToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedActAsToken = token
}

// SetAllowedRedirectURIs configures the redirect URIs the token endpoint
// accepts for the authorization-code grant.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetReplyTokens configures the access and refresh token values returned by
// the token endpoint.
func (p *TestProvider) SetReplyTokens(accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyAccessToken = accessToken
	p.replyRefreshToken = refreshToken
}

// SetReplyExpiresIn configures the expires_in seconds returned by the token
// endpoint.
func (p *TestProvider) SetReplyExpiresIn(seconds int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiresIn = seconds
}

// SetReplyUserinfo configures the raw JSON document the userinfo endpoint
// returns.  The document is served byte for byte so claim ordering is
// preserved.
func (p *TestProvider) SetReplyUserinfo(doc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = json.RawMessage(doc)
}

// SetReplySubject configures the sub claim of issued id_tokens.
func (p *TestProvider) SetReplySubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replySubject = sub
}

// SetCustomClaims lets you set additional claims to embed in issued
// id_tokens.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetIntrospectActive configures the active flag the introspection endpoint
// reports.
func (p *TestProvider) SetIntrospectActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.introspectActive = active
}

// SetIntrospectErrs forces the introspection endpoint to answer with a 500.
func (p *TestProvider) SetIntrospectErrs(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.introspectErrs = on
}

// OmitIDTokens forces an error state where the token endpoint does not
// return an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshTokens forces an error state where the token endpoint does not
// return a refresh_token.
func (p *TestProvider) OmitRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// DisableDiscovery makes the discovery document return 404, forcing clients
// onto static configuration or well-known defaults.
func (p *TestProvider) DisableDiscovery() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableDiscovery = true
}

// DisableJWKS makes the signing-key endpoint return 404.
func (p *TestProvider) DisableJWKS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableJWKS = true
}

// InvalidJWKS makes the signing-key endpoint return a document that is not a
// keyset.
func (p *TestProvider) InvalidJWKS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidJWKS = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from
// the discovery document.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// OmitIntrospectionFromDiscovery removes introspection_endpoint from the
// discovery document while leaving the endpoint itself serving.
func (p *TestProvider) OmitIntrospectionFromDiscovery() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIntrospectFromDoc = true
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// issueIDToken signs an id_token with the provider's key, embedding the
// expected nonce and any custom claims.  Callers must hold p.mu.
func (p *TestProvider) issueIDToken() string {
	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Audience:  jwt.Audience{p.clientID},
	}
	privateClaims := map[string]interface{}{
		"auth_time": now.Unix(),
	}
	if p.expectedAuthNonce != "" {
		privateClaims["nonce"] = p.expectedAuthNonce
	}
	for k, v := range p.customClaims {
		privateClaims[k] = v
	}
	return TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)
}

type testTokenReply struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.disableDiscovery {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		reply := struct {
			Issuer             string `json:"issuer"`
			AuthEndpoint       string `json:"authorization_endpoint"`
			TokenEndpoint      string `json:"token_endpoint"`
			JWKSURI            string `json:"jwks_uri"`
			UserinfoEndpoint   string `json:"userinfo_endpoint,omitempty"`
			IntrospectEndpoint string `json:"introspection_endpoint,omitempty"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/auth",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/jwks",
			UserinfoEndpoint:   p.Addr() + "/userinfo",
			IntrospectEndpoint: p.Addr() + "/introspect",
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		if p.omitIntrospectFromDoc {
			reply.IntrospectEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/jwks":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch {
		case p.disableJWKS:
			w.WriteHeader(http.StatusNotFound)
		case p.invalidJWKS:
			_, _ = w.Write([]byte("It's not a keyset!"))
		default:
			_ = p.writeJSON(w, p.jwks)
		}

	case "/token":
		p.handleToken(w, req)

	case "/introspect":
		if req.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.introspectErrs {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if req.FormValue("token") == "" {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing token")
			return
		}
		_ = p.writeJSON(w, map[string]interface{}{
			"active": p.introspectActive,
		})

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write(p.replyUserinfo)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleToken dispatches on grant_type.  Callers must hold p.mu.
func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if p.clientSecret != "" {
		if req.FormValue("client_id") != p.clientID || req.FormValue("client_secret") != p.clientSecret {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad client credentials")
			return
		}
	}

	reply := testTokenReply{
		AccessToken:  p.replyAccessToken,
		RefreshToken: p.replyRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.replyExpiresIn,
	}

	switch req.FormValue("grant_type") {
	case "authorization_code":
		switch {
		case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
			return
		}
		reply.IDToken = p.issueIDToken()

	case "client_credentials":
		reply.RefreshToken = ""

	case "password":
		if req.FormValue("username") != p.expectedUsername || req.FormValue("password") != p.expectedPassword {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "bad username or password")
			return
		}
		reply.IDToken = p.issueIDToken()

	case "refresh_token":
		if p.expectedRefreshToken != "" && req.FormValue("refresh_token") != p.expectedRefreshToken {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected refresh token")
			return
		}

	case GrantTypeActAsUser:
		switch {
		case req.FormValue("access_token") == "":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing access_token")
			return
		case !p.refererAllowed(req.FormValue("client_referer")):
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "client_referer is not a registered redirect uri")
			return
		case p.expectedActAsToken != "" && req.FormValue("access_token") != p.expectedActAsToken:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected access token")
			return
		}
		reply.RefreshToken = ""

	default:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
		return
	}

	if p.omitIDToken {
		reply.IDToken = ""
	}
	if p.omitRefreshToken {
		reply.RefreshToken = ""
	}
	_ = p.writeJSON(w, &reply)
}

// refererAllowed reports whether referer is rooted at one of the registered
// redirect URIs.  Callers must hold p.mu.
func (p *TestProvider) refererAllowed(referer string) bool {
	for _, uri := range p.allowedRedirectURIs {
		if strings.HasPrefix(referer, uri) {
			return true
		}
	}
	return false
}
