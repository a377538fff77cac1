// Package api is the request/response side of the game server: joining,
// move submission, quitting and a few lookups. Game state itself arrives on
// the push channel, not here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chesssync/internal/game"
	"chesssync/internal/logging"
	"chesssync/internal/session"
)

// ErrUnauthorized is matched by StatusErrors carrying a 401.
var ErrUnauthorized = errors.New("api: unauthorized")

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// MoveRequest is the body of a move submission.
type MoveRequest struct {
	FromSq string `json:"fromSq"`
	ToSq   string `json:"toSq"`
	Piece  string `json:"piece"`
	Side   string `json:"side"`
}

// User is the identity returned by /me.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type quitRequest struct {
	Token  string  `json:"token"`
	GameID game.ID `json:"gameId"`
}

// Client calls the game server on behalf of one session.
type Client struct {
	base      string
	sess      *session.Session
	http      *http.Client
	userAgent string
	log       *zap.Logger
	// quitTimeout bounds the fire-and-forget quit request.
	quitTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a client for the API rooted at base.
func New(base string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		base:        strings.TrimRight(base, "/"),
		sess:        sess,
		http:        &http.Client{Timeout: 15 * time.Second},
		userAgent:   "chesssync",
		quitTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

// Session returns the credential the client sends.
func (c *Client) Session() *session.Session { return c.sess }

// Join asks the server for a game of boardType. The returned snapshot may
// still be Waiting for an opponent.
func (c *Client) Join(ctx context.Context, boardType string) (*game.Game, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/game/join", map[string]string{"boardType": boardType}, &raw); err != nil {
		return nil, err
	}
	return game.Decode(raw)
}

// SubmitMove posts a move. Acceptance only means the server will broadcast
// the resulting state later.
func (c *Client) SubmitMove(ctx context.Context, id game.ID, m MoveRequest) error {
	return c.do(ctx, http.MethodPost, "/"+string(id)+"/moves", m, nil)
}

// BoardTypes lists the board variants the server offers, key to label.
func (c *Client) BoardTypes(ctx context.Context) (map[string]string, error) {
	types := map[string]string{}
	if err := c.do(ctx, http.MethodGet, "/game/types", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Quit tells the server the local player left. It does not wait for, retry
// or report the outcome.
func (c *Client) Quit(id game.ID) {
	body := quitRequest{Token: c.sess.Token, GameID: id}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.quitTimeout)
		defer cancel()
		if err := c.do(ctx, http.MethodPost, "/game/quit", body, nil); err != nil {
			c.log.Debug("quit not delivered", zap.String("game_id", string(id)), zap.Error(err))
		}
	}()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.sess != nil {
		c.sess.Authorize(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}
