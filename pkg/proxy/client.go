package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is a single call forwarded to the backend API.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Body     []byte
	Token    string
}

// Response carries the upstream status and its JSON body untouched.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Client forwards JSON calls to the backend API. It is a pass-through: no
// retries and no timeout beyond the http.Client default.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client rooted at baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Forward sends req upstream. Non-2xx statuses are returned as a Response, not an
// error; an error means the transport failed or the body was not JSON.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call upstream %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("null")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("upstream %s %s returned non-JSON body (status %d)", req.Method, req.Path, resp.StatusCode)
	}

	return &Response{Status: resp.StatusCode, Body: json.RawMessage(raw)}, nil
}
