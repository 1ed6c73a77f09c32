package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenResult is the identity provider's answer to a code exchange.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	UserInfo    *UserInfo `json:"user_info,omitempty"`
}

// UserInfo carries the identity attributes the provider attaches to a token.
type UserInfo struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// HTTPIdentityClient talks to the identity collaborator over its two-endpoint
// surface: GET <base>/login for the interactive redirect target and
// POST <base>/token for the code exchange.
type HTTPIdentityClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPIdentityClient builds a client for the given base URL.
func NewHTTPIdentityClient(baseURL string, timeout time.Duration) *HTTPIdentityClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIdentityClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// LoginURL fetches the provider's interactive login redirect target.
func (c *HTTPIdentityClient) LoginURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/login", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request login url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("login endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.AuthURL == "" {
		return "", fmt.Errorf("login endpoint returned no auth_url")
	}
	return payload.AuthURL, nil
}

// ExchangeCode posts the authorization code to the token endpoint. Any
// non-2xx status or malformed body is an exchange failure.
func (c *HTTPIdentityClient) ExchangeCode(ctx context.Context, code string) (TokenResult, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return TokenResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return TokenResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return TokenResult{}, fmt.Errorf("request token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenResult{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var result TokenResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return TokenResult{}, fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return TokenResult{}, fmt.Errorf("token endpoint returned no access_token")
	}
	return result, nil
}
