package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transport selects how push snapshots are received.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// Config is the client configuration.
type Config struct {
	APIURL    string
	Token     string
	Username  string
	BoardType string
	Push      PushConfig
	DB        DBConfig
	// PendingTTL bounds how long a submitted move's echo is awaited.
	PendingTTL time.Duration
	Debug      bool
}

type PushConfig struct {
	Transport Transport
	// HubURL is the Mercure hub; topics are passed as ?topic=.
	HubURL string
	// GameTopic and MatchmakingTopic may contain {api}, {gameId} and {username}.
	GameTopic        string
	MatchmakingTopic string
	// WebSocketURL is used instead of the hub when Transport is websocket.
	WebSocketURL string
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

type DBConfig struct {
	// DSN enables the postgres journal when set.
	DSN string
}

// Load reads an optional .env file and then the CHESS_* environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		APIURL:    strings.TrimRight(get("CHESS_API_URL", "http://localhost:8000/api"), "/"),
		Token:     get("CHESS_TOKEN", ""),
		Username:  get("CHESS_USERNAME", ""),
		BoardType: get("CHESS_BOARD_TYPE", "standard"),
		Push: PushConfig{
			Transport:        Transport(strings.ToLower(get("CHESS_PUSH_TRANSPORT", string(TransportSSE)))),
			HubURL:           get("CHESS_MERCURE_URL", "http://localhost:3000/.well-known/mercure"),
			GameTopic:        get("CHESS_GAME_TOPIC", "{api}/game/{gameId}"),
			MatchmakingTopic: get("CHESS_MATCHMAKING_TOPIC", "{api}/matchmaking/{username}"),
			WebSocketURL:     get("CHESS_WS_URL", "ws://localhost:8000/ws?topic={topic}"),
		},
		DB: DBConfig{DSN: get("CHESS_DATABASE_URL", "")},
	}

	var err error
	if cfg.Push.MinBackoff, err = time.ParseDuration(get("CHESS_BACKOFF_MIN", "500ms")); err != nil {
		return nil, fmt.Errorf("config: CHESS_BACKOFF_MIN: %w", err)
	}
	if cfg.Push.MaxBackoff, err = time.ParseDuration(get("CHESS_BACKOFF_MAX", "30s")); err != nil {
		return nil, fmt.Errorf("config: CHESS_BACKOFF_MAX: %w", err)
	}
	if cfg.PendingTTL, err = time.ParseDuration(get("CHESS_PENDING_TTL", "4s")); err != nil {
		return nil, fmt.Errorf("config: CHESS_PENDING_TTL: %w", err)
	}
	if cfg.Debug, err = strconv.ParseBool(get("CHESS_DEBUG", "false")); err != nil {
		return nil, fmt.Errorf("config: CHESS_DEBUG: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("config: api url: %w", err)
	}
	switch c.Push.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("config: unknown push transport %q", c.Push.Transport)
	}
	if c.Push.MinBackoff <= 0 || c.Push.MaxBackoff < c.Push.MinBackoff {
		return fmt.Errorf("config: backoff bounds %s..%s", c.Push.MinBackoff, c.Push.MaxBackoff)
	}
	return nil
}

// GameURL returns the push URL for a game id.
func (c *Config) GameURL(gameID, username string) string {
	return c.pushURL(c.Push.GameTopic, gameID, username)
}

// MatchmakingURL returns the push URL that announces pending joins.
func (c *Config) MatchmakingURL(username string) string {
	return c.pushURL(c.Push.MatchmakingTopic, "", username)
}

func (c *Config) pushURL(topicTmpl, gameID, username string) string {
	topic := strings.NewReplacer(
		"{api}", c.APIURL,
		"{gameId}", gameID,
		"{username}", url.PathEscape(username),
	).Replace(topicTmpl)
	if c.Push.Transport == TransportWebSocket {
		return strings.ReplaceAll(c.Push.WebSocketURL, "{topic}", url.QueryEscape(topic))
	}
	sep := "?"
	if strings.Contains(c.Push.HubURL, "?") {
		sep = "&"
	}
	return c.Push.HubURL + sep + "topic=" + url.QueryEscape(topic)
}
