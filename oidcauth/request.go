package oidcauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Request is the host-boundary view of one inbound authentication request.
// Hosts construct it from their own request type; RequestFromHTTP covers
// net/http hosts.
type Request struct {
	// AbsoluteURL is the request's full URL, including any fragment the
	// host captured.
	AbsoluteURL string

	// Referrer is the request's Referer header value.
	Referrer string

	// Query and Form carry the parsed query string and form body.
	Query url.Values
	Form  url.Values

	// Header carries the request headers (used for the bearer token on the
	// impersonation flow).
	Header http.Header

	// Username and Password are caller-supplied credentials for the
	// interactive and resource-owner password flows.
	Username string
	Password string

	// OAuthToken optionally carries an explicit access token for the
	// impersonation flow, taking precedence over the Authorization header.
	OAuthToken string

	// OAuthVerifier optionally carries an explicit client referer URL for
	// the impersonation flow, taking precedence over the Referer header.
	OAuthVerifier string
}

// RequestFromHTTP builds a Request from a net/http request.  The form body
// is parsed; fragments never reach the server in net/http, so fragment
// credentials only surface when the host captured them into AbsoluteURL.
func RequestFromHTTP(r *http.Request) *Request {
	_ = r.ParseForm()

	absolute := r.URL.String()
	if !r.URL.IsAbs() {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		absolute = scheme + "://" + r.Host + r.URL.String()
	}

	return &Request{
		AbsoluteURL: absolute,
		Referrer:    r.Referer(),
		Query:       r.URL.Query(),
		Form:        r.PostForm,
		Header:      r.Header,
	}
}

// fragmentValues parses the credential pairs out of a URL fragment.
func fragmentValues(absoluteURL string) url.Values {
	u, err := url.Parse(absoluteURL)
	if err != nil || u.Fragment == "" {
		return url.Values{}
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return url.Values{}
	}
	return values
}

// lookup returns the first value for key from the fragment, form body or
// query string, in that precedence.
func (r *Request) lookup(key string) string {
	if v := fragmentValues(r.AbsoluteURL).Get(key); v != "" {
		return v
	}
	if r.Form != nil {
		if v := r.Form.Get(key); v != "" {
			return v
		}
	}
	if r.Query != nil {
		if v := r.Query.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// parseAuthenticateResult retrieves the id_token and code the identity
// provider sent back on a callback request.  An error response short
// circuits to an empty result.
func parseAuthenticateResult(req *Request, logger hclog.Logger) AuthenticateResult {
	var result AuthenticateResult

	if errValue := req.lookup("error"); errValue != "" {
		logger.Error("error response from the identity provider", "error", errValue, "description", req.lookup("error_description"))
		return result
	}

	result.IdToken = req.lookup("id_token")
	result.Code = req.lookup("code")
	return result
}

// referrerURL determines where the caller should return to after login.
// A `redirect` query parameter wins over the Referer header: the redirect
// URL cannot be forwarded to the identity provider, which uses the redirect
// URI to authenticate where the request came from.
func referrerURL(req *Request) string {
	if req.Query != nil {
		if redirect := req.Query.Get("redirect"); redirect != "" {
			return redirect
		}
	}
	return req.Referrer
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(header http.Header) string {
	if header == nil {
		return ""
	}
	authorization := header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	const prefix = "bearer "
	if len(authorization) > len(prefix) && strings.EqualFold(authorization[:len(prefix)], prefix) {
		return strings.TrimSpace(authorization[len(prefix):])
	}
	return ""
}
