// Package graph is a thin client for the platform Graph API.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// APIError is returned for any non-2xx Graph API response.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api: status %d: %s", e.StatusCode, string(e.Body))
}

// Client calls a single Graph API host at a fixed version.
// Calls are synchronous and independent: no retries and no timeout beyond the transport's.
type Client struct {
	baseURL string
	version string
	http    *http.Client
}

// New constructs a client for baseURL (e.g. https://graph.facebook.com) and version (e.g. v23.0).
// A nil httpClient means http.DefaultClient.
func New(baseURL, version string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: strings.Trim(version, "/"),
		http:    httpClient,
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + c.version + "/" + strings.TrimLeft(path, "/")
}

// Get performs GET {base}/{version}/{path}?{params} and decodes the JSON object.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (Object, error) {
	u := c.endpoint(path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(c.http, req)
}

// PostJSON posts body as JSON to {path}, authenticated with token as a bearer credential.
func (c *Client) PostJSON(ctx context.Context, path, token string, body any) (Object, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	authed := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.http),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	)
	return c.do(authed, req)
}

func (c *Client) do(hc *http.Client, req *http.Request) (Object, error) {
	resp, err := hc.Do(req)
	if err != nil {
		// url.Error carries the full URL, query credentials included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("graph %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: rawOrEmpty(raw)}
	}

	out := Object{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	return out, nil
}

func rawOrEmpty(b []byte) json.RawMessage {
	if !json.Valid(b) {
		quoted, _ := json.Marshal(string(b))
		return quoted
	}
	return b
}
