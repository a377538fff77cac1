// Package matchmaking finds a game to play, waiting on the matchmaking push
// channel when the server has no opponent yet.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chesssync/internal/game"
	"chesssync/internal/logging"
	"chesssync/internal/push"
)

var (
	// ErrJoinInProgress is returned when Join is called while another join
	// on the same client is still pending.
	ErrJoinInProgress = errors.New("matchmaking: join already in progress")
	// ErrChannelClosed is returned when the matchmaking channel ends before
	// a game starts.
	ErrChannelClosed = errors.New("matchmaking: channel closed before a game started")
	// ErrGameOver is returned when the join response is already finished or
	// cancelled, so there is nothing to wait for.
	ErrGameOver = errors.New("matchmaking: joined game is already over")
)

// Joiner issues the join request.
type Joiner interface {
	Join(ctx context.Context, boardType string) (*game.Game, error)
}

// Client joins games.
type Client struct {
	joiner Joiner
	dialer push.Dialer
	url    string
	opts   []push.Option
	log    *zap.Logger

	mu      sync.Mutex
	joining bool
}

// New returns a client that waits on the push channel at url.
func New(joiner Joiner, dialer push.Dialer, url string, log *zap.Logger, opts ...push.Option) *Client {
	return &Client{joiner: joiner, dialer: dialer, url: url, opts: opts, log: logging.OrNop(log)}
}

// Join requests a game of boardType. It returns as soon as the game has left
// the Waiting state with both players seated, either straight from the join
// response or from the first such snapshot on the matchmaking channel. A join
// response that is already finished or cancelled is returned together with
// ErrGameOver.
func (c *Client) Join(ctx context.Context, boardType string) (*game.Game, error) {
	c.mu.Lock()
	if c.joining {
		c.mu.Unlock()
		return nil, ErrJoinInProgress
	}
	c.joining = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.joining = false
		c.mu.Unlock()
	}()

	g, err := c.joiner.Join(ctx, boardType)
	if err != nil {
		return nil, fmt.Errorf("matchmaking: join: %w", err)
	}
	log := c.log.With(zap.String("game_id", string(g.ID)), zap.String("board_type", boardType))
	if g.Status == game.Finished || g.Status == game.Cancelled {
		log.Warn("joined game already over", zap.Stringer("status", g.Status))
		return g, fmt.Errorf("%w: %s", ErrGameOver, g.Status)
	}
	if g.Status != game.Waiting && g.Ready() {
		log.Info("game ready", zap.Stringer("status", g.Status))
		return g, nil
	}

	log.Info("waiting for an opponent")
	sub := push.Subscribe(ctx, c.url, c.dialer, c.opts...)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case raw, ok := <-sub.Messages():
			if !ok {
				return nil, ErrChannelClosed
			}
			next, err := game.Decode(raw)
			if err != nil {
				log.Warn("dropping malformed matchmaking message", zap.Error(err))
				continue
			}
			if next.Status == game.Waiting {
				log.Debug("still waiting", zap.Int("players", len(next.Players)))
				continue
			}
			log.Info("game started", zap.String("started_id", string(next.ID)), zap.Stringer("status", next.Status))
			return next, nil
		}
	}
}
