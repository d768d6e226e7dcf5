// Package client provides the Pokédex HTTP client: bearer-token
// attachment on every outbound request and transparent single-flight
// token refresh on authorization failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/pokedexlabs/pokedex-client/pkg/session"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokedex_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_token_refreshes_total",
		Help: "Total token refresh attempts by outcome",
	}, []string{"outcome"}) // "success", "failure"

	sessionExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedex_session_expired_total",
		Help: "Total failed-refresh episodes ending the session",
	})
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	logoutPath  = "/auth/logout"
	mePath      = "/auth/me"

	// DefaultTimeout is generous because some aggregate endpoints are slow.
	DefaultTimeout = 60 * time.Second
)

// Client is the Pokédex API HTTP client.
type Client struct {
	httpClient *http.Client
	tokens     *session.Tokens
	baseURL    string
	userAgent  string
	logger     zerolog.Logger

	// refreshGroup guarantees at most one refresh round-trip is in
	// flight; concurrent 401s share its outcome.
	refreshGroup singleflight.Group
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Pokédex backend, e.g. "https://api.pokedex.example".
	BaseURL string

	// Tokens is the session token service (required).
	Tokens *session.Tokens

	// Timeout for each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// UserAgent header sent with every request.
	UserAgent string

	// HTTPClient overrides the internal HTTP client (tests). When set,
	// Timeout is ignored and the caller owns cookie-jar configuration.
	HTTPClient *http.Client
}

// New creates a Pokédex API client. The cookie jar carries the
// HTTP-only refresh cookie so the refresh credential travels
// automatically; the client never reads its value.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}

		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{
			Timeout: timeout,
			Jar:     jar,
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "pokedex-client/1.0"
	}

	return &Client{
		httpClient: httpClient,
		tokens:     cfg.Tokens,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		logger:     log.With().Str("component", "api-client").Logger(),
	}, nil
}

// Tokens returns the session token service backing this client.
func (c *Client) Tokens() *session.Tokens {
	return c.tokens
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a request through the interceptor pipeline: the current
// bearer token is attached when present, and a 401 on a non-login
// request triggers one coordinated refresh followed by a single replay.
// A request that fails with 401 even after the replay propagates that
// failure; every other error passes through untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.send(req, c.tokens.AccessToken(req.Context()))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	// Login requests are exempt: bad credentials must not trigger the
	// refresh protocol.
	if resp.StatusCode != http.StatusUnauthorized || strings.HasSuffix(endpoint, loginPath) {
		return resp, nil
	}

	// Authorization failure on a refresh-eligible request.
	c.logger.Debug().Str("endpoint", endpoint).Msg("401 received, entering refresh protocol")

	token, refreshErr := c.refreshToken(req.Context())
	if refreshErr != nil {
		// Session is over; the caller gets the original 401, not the
		// refresh failure.
		c.logger.Warn().Str("endpoint", endpoint).Msg("Refresh failed, propagating original 401")
		return resp, nil
	}

	// Replay exactly once with the refreshed token. A second 401 is
	// returned as-is: the pipeline never loops.
	retry, err := c.rewind(req)
	if err != nil {
		// A consumed body cannot be replayed faithfully; the caller
		// gets the original 401 rather than a silently empty replay.
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cannot replay request, propagating original 401")
		return resp, nil
	}
	resp.Body.Close()

	replayed, err := c.send(retry, token)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", replayed.StatusCode)).Inc()
	return replayed, nil
}

// send executes a single request attempt with the given token attached.
func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}

	return c.httpClient.Do(req)
}

// rewind clones a request for replay, restoring its body. A request
// that carried a body without a GetBody factory cannot be rewound: its
// body was consumed by the first attempt.
func (c *Client) rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be rewound")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}

// refreshToken runs the refresh protocol. Singleflight collapses
// concurrent callers onto one backend round-trip: waiters block until
// the shared refresh resolves, then replay with its token. On failure
// the token is cleared and the session-expired notification fires once
// for the whole episode.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	token, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		// The refresh must not die with whichever caller happened to
		// trigger it; waiters depend on its outcome.
		rctx := context.WithoutCancel(ctx)

		newToken, err := c.doRefresh(rctx)
		if err != nil {
			tokenRefreshesTotal.WithLabelValues("failure").Inc()
			sessionExpiredTotal.Inc()
			c.tokens.Clear(rctx)
			c.tokens.NotifyExpired()
			return "", err
		}

		tokenRefreshesTotal.WithLabelValues("success").Inc()
		c.tokens.SetAccessToken(rctx, newToken)
		c.logger.Debug().Msg("Access token refreshed")
		return newToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// doRefresh performs the actual refresh round-trip. Authentication is
// carried by the HTTP-only session cookie, not the bearer token. Any
// failure, network or HTTP, ends the session.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.path(refreshPath), nil)
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: refresh rejected with status %d", ErrSessionExpired, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode refresh response: %v", ErrSessionExpired, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh returned empty token", ErrSessionExpired)
	}
	return payload.AccessToken, nil
}

// path joins the base URL with an API path.
func (c *Client) path(p string) string {
	return c.baseURL + p
}

// GetJSON performs a GET request and decodes a 2xx response into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, p string, query url.Values, out any) error {
	u := c.path(p)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.execJSON(req, out)
}

// PostJSON performs a POST request with a JSON body.
func (c *Client) PostJSON(ctx context.Context, p string, body, out any) error {
	return c.writeJSON(ctx, http.MethodPost, p, body, out)
}

// PutJSON performs a PUT request with a JSON body.
func (c *Client) PutJSON(ctx context.Context, p string, body, out any) error {
	return c.writeJSON(ctx, http.MethodPut, p, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, p string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.path(p), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.execJSON(req, nil)
}

func (c *Client) writeJSON(ctx context.Context, method, p string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.path(p), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.execJSON(req, out)
}

func (c *Client) execJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp)
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		return apiErr
	}

	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
