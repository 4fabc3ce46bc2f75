// Package atlassian is the HTTP proxy client for the Jira and Confluence
// cloud REST APIs. Calls are made either as the app's service identity or as
// the invoking user.
package atlassian

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
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single API round trip.
const DefaultTimeout = 60 * time.Second

// Identity selects whose credentials a request is made with.
type Identity int

const (
	// AsApp calls with the app's client-credentials token.
	AsApp Identity = iota
	// AsUser calls with the invoking user's bearer token from the context.
	AsUser
)

func (i Identity) String() string {
	if i == AsUser {
		return "user"
	}
	return "app"
}

// ErrNoUserToken is returned for AsUser requests when the context carries no token.
var ErrNoUserToken = errors.New("no user token in context")

type userTokenKey struct{}

// WithUserToken returns a context carrying the invoking user's access token.
func WithUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, userTokenKey{}, token)
}

// UserToken returns the user access token carried on ctx, if any.
func UserToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(userTokenKey{}).(string)
	return token, ok && token != ""
}

// Config configures a Client.
type Config struct {
	CloudID           string
	APIBaseURL        string
	ClientID          string
	ClientSecret      string
	TokenURL          string
	RequestsPerSecond float64
	Burst             int
}

// Request holds the per-call options: method, headers and body.
type Request struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Client performs requests against the Jira and Confluence APIs of one cloud site.
type Client struct {
	jiraBase       string
	confluenceBase string
	base           *http.Client
	app            *http.Client
	limiter        *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client used for both identities.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// NewClient creates a Client. When no client id is configured, app requests
// are sent without credentials, which suits an authenticating egress proxy.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.CloudID == "" {
		return nil, fmt.Errorf("atlassian cloud id must be provided")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	base := strings.TrimSuffix(cfg.APIBaseURL, "/")
	c := &Client{
		jiraBase:       fmt.Sprintf("%s/ex/jira/%s", base, cfg.CloudID),
		confluenceBase: fmt.Sprintf("%s/ex/confluence/%s", base, cfg.CloudID),
		base:           &http.Client{Timeout: DefaultTimeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.app = c.base
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		c.app = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, c.base))
		c.app.Timeout = c.base.Timeout
	}
	return c, nil
}

// RequestJira performs a request against the Jira API. path starts at "/rest/...".
func (c *Client) RequestJira(ctx context.Context, as Identity, path string, req Request) (*Response, error) {
	return c.do(ctx, as, c.jiraBase+path, req)
}

// RequestConfluence performs a request against the Confluence API. path starts at "/wiki/...".
func (c *Client) RequestConfluence(ctx context.Context, as Identity, path string, req Request) (*Response, error) {
	return c.do(ctx, as, c.confluenceBase+path, req)
}

func (c *Client) do(ctx context.Context, as Identity, target string, req Request) (*Response, error) {
	hc, err := c.httpClient(ctx, as)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, target, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s as %s: %w", method, target, as, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, target, err)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) httpClient(ctx context.Context, as Identity) (*http.Client, error) {
	if as == AsApp {
		return c.app, nil
	}
	token, ok := UserToken(ctx)
	if !ok {
		return nil, ErrNoUserToken
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), ts)
	hc.Timeout = c.base.Timeout
	return hc, nil
}

// Route builds a path from a format with %s verbs, escaping every argument
// as a single path segment.
func Route(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}

// getRequest is a bodiless GET that accepts JSON.
func getRequest() Request {
	return Request{Method: http.MethodGet, Header: http.Header{"Accept": {"application/json"}}}
}

func jsonRequest(method string, payload any) (Request, error) {
	req := getRequest()
	req.Method = method
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Request{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Body = bytes.NewReader(b)
	}
	return req, nil
}
