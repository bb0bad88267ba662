package oidcauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// tokenEndpointResponse is the provider's token endpoint reply, for the
// grants that golang.org/x/oauth2 cannot express (refresh_token and the
// custom act-as-user grant).
type tokenEndpointResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	IdToken          string `json:"id_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// IsError reports whether the provider answered with an OAuth2 error
// response.
func (r *tokenEndpointResponse) IsError() bool {
	return r.Error != ""
}

// requestToken performs a form-encoded POST against the token endpoint with
// the client credentials appended.  A transport failure returns an error; an
// OAuth2 error response is returned to the caller to log and convert into an
// empty result.
func requestToken(ctx context.Context, client *http.Client, settings *Settings, form url.Values) (*tokenEndpointResponse, error) {
	secret, err := settings.SecretStore.ClientSecret(ctx, settings.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretStoreFailed, err)
	}
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var tokenResp tokenEndpointResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("cannot parse token endpoint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && !tokenResp.IsError() {
		tokenResp.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return &tokenResp, nil
}
