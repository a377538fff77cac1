package gamesync

import (
	"context"

	"go.uber.org/zap"

	"chesssync/internal/api"
	"chesssync/internal/game"
)

// journalWrite is either a snapshot (game set) or a submitted move.
type journalWrite struct {
	game *game.Game
	id   game.ID
	move *api.MoveRequest
}

// record queues w for the journal writer. Snapshots are never modified after
// decoding, so the writer can share them with the event loop.
func (c *Controller) record(w journalWrite) {
	if c.journal == nil {
		return
	}
	select {
	case c.writes <- w:
	default:
		c.log.Warn("journal queue full, dropping write", zap.String("game_id", string(c.gameID())))
	}
}

// writeJournal drains the queue until it is closed, then closes done.
func (c *Controller) writeJournal(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for w := range c.writes {
		var err error
		if w.game != nil {
			err = c.journal.RecordSnapshot(ctx, w.game)
		} else {
			err = c.journal.RecordMove(ctx, w.id, *w.move)
		}
		if err != nil {
			c.log.Warn("journal write failed", zap.String("game_id", string(w.id)), zap.Error(err))
		}
	}
}
