package oidcauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hashicorp/go-hclog"
)

// UserInfoClient fetches identity claims for an access token.
type UserInfoClient struct {
	settings *Settings
	client   *http.Client
	logger   hclog.Logger
}

// NewUserInfoClient creates a userinfo client.
func NewUserInfoClient(settings *Settings, client *http.Client, logger hclog.Logger) *UserInfoClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &UserInfoClient{
		settings: settings,
		client:   client,
		logger:   logger,
	}
}

// GetClaims fetches the claims for accessToken.  Errors are logged and
// yield an empty claim set so that claim mapping degrades to "no extra
// identity info" rather than blocking authentication.
func (c *UserInfoClient) GetClaims(ctx context.Context, accessToken string) []Claim {
	userInfoURL := c.settings.UserInfoEndpoint()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		c.logger.Error("error building userinfo request", "url", userInfoURL, "error", err)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("error calling userinfo endpoint", "url", userInfoURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Error("error reading userinfo response", "url", userInfoURL, "error", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("error calling userinfo endpoint", "url", userInfoURL, "status", resp.StatusCode)
		return nil
	}

	claims, err := flattenClaims(body)
	if err != nil {
		c.logger.Error("error parsing userinfo response", "url", userInfoURL, "error", err)
		return nil
	}
	return claims
}

// flattenClaims converts a userinfo JSON document into an ordered claim
// list, preserving document order.  Array-valued claims become repeated
// (type, value) pairs; nested objects are retained as raw JSON.
func flattenClaims(doc []byte) ([]Claim, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("userinfo document is not a JSON object")
	}

	var claims []Claim
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in userinfo document", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		claims = appendClaimValues(claims, key, raw)
	}
	return claims, nil
}

func appendClaimValues(claims []Claim, key string, raw json.RawMessage) []Claim {
	var value interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return claims
	}

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			claims = append(claims, Claim{Type: key, Value: claimString(item)})
		}
	default:
		claims = append(claims, Claim{Type: key, Value: claimString(v)})
	}
	return claims
}

func claimString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}
