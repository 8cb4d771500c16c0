// Package api is the storefront REST client. Every call returns a
// result.Result; transport failures, 401s and {success:false} bodies are
// classified before callers see them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// TokenSource yields the bearer credential for authenticated calls; an empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

// StaticToken wraps a fixed credential.
func StaticToken(token string) TokenSource { return staticToken(token) }

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// New returns a client for baseURL. A non-positive timeout falls back to
// defaultTimeout.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithTokens returns a copy of c using tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

// send performs req and decodes the success body into out. The returned error
// is always a *result.Error.
func (c *Client) send(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return &result.Error{Kind: result.Rejected, Message: "could not encode request", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return &result.Error{Kind: result.Rejected, Message: "could not build request", Err: err}
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &result.Error{Kind: result.NetworkUnreachable, Err: fmt.Errorf("%s %s: %w", req.method, req.path, err)}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &result.Error{Kind: result.NetworkUnreachable, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		return &result.Error{Kind: result.Unauthorized, Message: env.Message, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &result.Error{Kind: result.ServerRejected, Message: env.Message, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return &result.Error{Kind: result.ServerRejected, Message: "malformed server response", StatusCode: resp.StatusCode, Err: decodeErr}
	}
	if env.Success == nil || !*env.Success {
		return &result.Error{Kind: result.ServerRejected, Message: env.Message, StatusCode: resp.StatusCode}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &result.Error{Kind: result.ServerRejected, Message: "malformed server response", StatusCode: resp.StatusCode, Err: err}
		}
	}
	return nil
}

func limitQuery(q url.Values, limit int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func escape(id string) string {
	return url.PathEscape(id)
}
