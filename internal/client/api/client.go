// Package api is the HTTP client for the auth server used by the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TokenPair mirrors the token payload returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// APIError is a non-success outcome reported by the server. Message is the
// user-facing text from the response body.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the auth server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	_, err := c.post(ctx, "/api/auth/register/password", body, "")
	return err
}

func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{"username": username, "password": password}
	data, err := c.post(ctx, "/api/auth/login/password", body, "")
	if err != nil {
		return nil, err
	}
	return decodeTokens(data)
}

func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"access_token": accessToken, "refresh_token": refreshToken}
	data, err := c.post(ctx, "/api/auth/refreshtoken", body, "")
	if err != nil {
		return nil, err
	}
	return decodeTokens(data)
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.post(ctx, "/api/auth/logout", nil, accessToken)
	return err
}

func (c *Client) PromoteAdmin(ctx context.Context, accessToken, username string) error {
	body := map[string]string{"username": username}
	_, err := c.post(ctx, "/api/auth/admin/create", body, accessToken)
	return err
}

func (c *Client) Verify(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/auth/verify?token="+url.QueryEscape(token), nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server unavailable: %w", err)
	}
	defer resp.Body.Close()

	out := &apiResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if out.Status != "success" {
		return nil, &APIError{Status: out.Status, Message: out.Message}
	}
	return out.Data, nil
}

func decodeTokens(data json.RawMessage) (*TokenPair, error) {
	pair := &TokenPair{}
	if err := json.Unmarshal(data, pair); err != nil {
		return nil, fmt.Errorf("error decoding tokens: %w", err)
	}
	return pair, nil
}
