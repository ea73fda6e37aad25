package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"leaderbot/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the leaderbot HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// Award adds delta points and one win to target on behalf of a caller
// holding roles.
func (c *Client) Award(ctx context.Context, target string, delta int64, roles []string) (AwardResult, error) {
	if strings.TrimSpace(target) == "" {
		return AwardResult{}, ErrEmptyActorID
	}
	body := map[string]any{"target_id": target, "delta": delta, "actor_roles": nonNil(roles)}
	var res AwardResult
	if err := c.do(ctx, http.MethodPost, "/awards", body, &res); err != nil {
		return AwardResult{}, err
	}
	return res, nil
}

// Reset clears the leaderboard and returns the confirmation message.
func (c *Client) Reset(ctx context.Context, roles []string) (Message, error) {
	var res struct {
		OK      bool    `json:"ok"`
		Message Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/reset", map[string]any{"actor_roles": nonNil(roles)}, &res); err != nil {
		return Message{}, err
	}
	if !res.OK {
		return Message{}, errors.New("leaderboard not reset")
	}
	return res.Message, nil
}

// Leaderboard fetches the full ranking.
func (c *Client) Leaderboard(ctx context.Context) (Leaderboard, error) {
	var lb Leaderboard
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &lb); err != nil {
		return Leaderboard{}, err
	}
	return lb, nil
}

// Position fetches one actor's ranked row.
func (c *Client) Position(ctx context.Context, actor string) (RankedEntry, error) {
	if strings.TrimSpace(actor) == "" {
		return RankedEntry{}, ErrEmptyActorID
	}
	var rk RankedEntry
	if err := c.do(ctx, http.MethodGet, "/leaderboard/"+url.PathEscape(actor), nil, &rk); err != nil {
		return RankedEntry{}, err
	}
	return rk, nil
}

// Cooldown consumes one use of scope. A rejection is a normal result, not an error.
func (c *Client) Cooldown(ctx context.Context, scope string) (CooldownResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/cooldowns/"+url.PathEscape(scope), nil)
	if err != nil {
		return CooldownResult{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CooldownResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusTooManyRequests {
		return CooldownResult{}, decodeError(resp)
	}
	var res CooldownResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return CooldownResult{}, err
	}
	return res, nil
}

// RetryAfter converts the server's retry hint to a duration.
func (r CooldownResult) RetryAfter() time.Duration {
	return time.Duration(r.RetryAfterSeconds * float64(time.Second))
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// Optional types limit the stream server side.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, types ...core.EventType) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		target += "?types=" + url.QueryEscape(strings.Join(names, ","))
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)
	return req, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
