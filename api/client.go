package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
	"github.com/jrsteele09/bizdesk/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
)

// Client is the single configured HTTP client for the backend. It sends the session's
// access token as a bearer credential and refreshes it once when a request comes back
// 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Manager
	timeout    time.Duration
	limiter    *rate.Limiter
	metrics    *Metrics

	refreshGroup singleflight.Group

	// default request configuration, kept in step with the session
	defaultsMu sync.RWMutex
	bearer     string

	Auth       *AuthAPI
	Clients    *Resource[model.Client]
	Quotations *MailableResource[model.Quotation]
	Receipts   *MailableResource[model.Receipt]
}

type Option func(*Client)

// WithHTTPClient sends requests through httpClient, keeping its timeout unless
// WithTimeout is also given. The caller's client is never modified.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every request, whatever the order of the options
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimit caps outgoing requests to rps per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client rooted at baseURL. The session's current access token is
// applied immediately and every later change is followed.
func New(baseURL string, sess *session.Manager, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    sess,
	}

	for _, opt := range options {
		opt(c)
	}
	// applied on a copy once all options ran
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	c.Auth = &AuthAPI{client: c}
	c.Clients = &Resource[model.Client]{client: c, path: RouteClients}
	c.Quotations = &MailableResource[model.Quotation]{Resource: &Resource[model.Quotation]{client: c, path: RouteQuotations}}
	c.Receipts = &MailableResource[model.Receipt]{Resource: &Resource[model.Receipt]{client: c, path: RouteReceipts}}

	sess.OnChange(c.applyBearer)
	return c
}

// Session returns the token store the client authenticates with
func (c *Client) Session() *session.Manager {
	return c.session
}

// SetAuthToken persists token and makes it the bearer credential for every
// following request. An empty token removes the credential.
func (c *Client) SetAuthToken(token string) error {
	return c.session.SetAuthToken(token)
}

// Login exchanges credentials for a token pair and stores it
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	pair, err := c.Auth.Login(ctx, Credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if err := c.session.SetTokens(pair.Access, pair.Refresh); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout forgets the session
func (c *Client) Logout() error {
	return c.session.Clear()
}

// BearerToken returns the access token currently attached to requests
func (c *Client) BearerToken() string {
	c.defaultsMu.RLock()
	defer c.defaultsMu.RUnlock()
	return c.bearer
}

func (c *Client) applyBearer(token string) {
	c.defaultsMu.Lock()
	defer c.defaultsMu.Unlock()
	c.bearer = token
}

// do sends a request and returns the response body of a 2xx answer. A 401 on a
// refreshable path triggers one refresh and one retry; the attempt number travels in
// ctx so concurrent requests never share it.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("[api %s %s] failed to encode body: %w", method, path, err)
		}
	}
	return c.doPayload(ctx, method, path, payload)
}

func (c *Client) doPayload(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	attempt := attemptFrom(ctx)

	status, respBody, usedToken, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status < 300 {
		return respBody, nil
	}

	httpErr := newHTTPError(method, path, status, respBody)
	if status != http.StatusUnauthorized || attempt > 0 || !refreshable(path) {
		return nil, httpErr
	}

	if err := c.refreshAccessToken(ctx, usedToken); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("token refresh failed")
		return nil, httpErr
	}

	log.Debug().Str("method", method).Str("path", path).Msg("retrying with refreshed token")
	return c.doPayload(withAttempt(ctx, attempt+1), method, path, payload)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, "", fmt.Errorf("%w: %s %s: %w", errors.ErrTransport, method, path, err)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("[api %s %s] failed to build request: %w", method, path, err)
	}

	token := c.BearerToken()
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(method, 0, started)
		return 0, nil, token, fmt.Errorf("%w: %s %s: %w", errors.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.observeRequest(method, resp.StatusCode, started)
	if err != nil {
		return 0, nil, token, fmt.Errorf("%w: %s %s: reading body: %w", errors.ErrTransport, method, path, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("api request")

	return resp.StatusCode, respBody, token, nil
}

func decode[T any](data []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("[api decode] %w", err)
	}
	return out, nil
}

type attemptKey struct{}

func attemptFrom(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

func withAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}
