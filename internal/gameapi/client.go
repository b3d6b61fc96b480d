// Package gameapi talks to the game server's JSON endpoints.
package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/omok-client/internal/domain"
)

const (
	OpNewGame   = "new_game"
	OpMakeMove  = "make_move"
	OpAIMove    = "ai_move"
	OpGameState = "game_state"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt count for idempotent reads. Moves are never retried.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) NewGame(ctx context.Context, symbol domain.Symbol) (*Response, error) {
	return c.call(ctx, OpNewGame, fasthttp.MethodPost, "/api/new_game", NewGameRequest{Symbol: string(symbol)}, false)
}

func (c *Client) MakeMove(ctx context.Context, row, col int) (*Response, error) {
	return c.call(ctx, OpMakeMove, fasthttp.MethodPost, "/api/make_move", MoveRequest{Row: row, Col: col}, false)
}

func (c *Client) AIMove(ctx context.Context) (*Response, error) {
	return c.call(ctx, OpAIMove, fasthttp.MethodPost, "/api/ai_move", nil, false)
}

func (c *Client) GameState(ctx context.Context) (*Response, error) {
	return c.call(ctx, OpGameState, fasthttp.MethodGet, "/api/game_state", nil, true)
}

// call performs the request and turns the envelope into either a payload or
// one of TransportError, ProtocolError or SessionStateError.
func (c *Client) call(ctx context.Context, op, method, path string, in any, retry bool) (*Response, error) {
	var out Response
	status, err := c.doJSON(ctx, method, path, in, &out, retry)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if !out.Success {
		if out.Error == "" && (status < 200 || status >= 300) {
			return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("status %d", status)}
		}
		if IsSessionStateMessage(out.Error) {
			return nil, &domain.SessionStateError{Op: op, Message: out.Error}
		}
		return nil, &domain.ProtocolError{Op: op, Message: out.Error}
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) (int, error) {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	} else if method == fasthttp.MethodPost {
		req.SetBodyString("{}")
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 || !shouldRetryStatus(status) || attempt == attempts {
				if jerr := json.Unmarshal(resp.Body(), out); jerr != nil {
					if status < 200 || status >= 300 {
						return status, fmt.Errorf("game api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
					}
					return status, fmt.Errorf("decode response: %w", jerr)
				}
				return status, nil
			}
			lastErr = fmt.Errorf("game api error: status=%d", status)
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return 0, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return 0, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

// IsSessionStateMessage recognises the server's "game not initialized" reply.
func IsSessionStateMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range sessionStateMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

var sessionStateMarkers = []string{
	"не инициализирована",
	"not initialized",
	"not initialised",
	"no active game",
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
