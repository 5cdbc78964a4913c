package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Illuminatus66/byqr/pkg/kit"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// TokenSource returns the bearer token for the current session, or "" when anonymous.
type TokenSource func() string

type Client struct {
	BaseURL string
	HTTP    *http.Client

	token TokenSource
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

func WithMetrics(m *kit.ClientMetrics) Option {
	return func(c *Client) {
		c.HTTP.Transport = m.RoundTripper(c.HTTP.Transport, routeLabel)
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokenSource is called once by the session manager that owns the token.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.token = ts
}

type routeKey struct{}

func routeLabel(r *http.Request) string {
	if v, ok := r.Context().Value(routeKey{}).(string); ok {
		return v
	}
	return r.URL.Path
}

func (c *Client) do(ctx context.Context, method, route, path string, in, out any) error {
	op := method + " " + route

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		body = bytes.NewReader(raw)
	}

	ctx = context.WithValue(ctx, routeKey{}, route)
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(ErrNetwork, "%s: %v", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrBadStatus, "%s: decode response: %v", op, err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var m struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &m) == nil && m.Message != "" {
		return m.Message
	}
	return strings.TrimSpace(string(raw))
}
