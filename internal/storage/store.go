package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chesssync/internal/api"
	"chesssync/internal/game"
)

// Store is a journal of the games a local player took part in. A nil *Store
// accepts every call and records nothing.
type Store struct {
	db       *gorm.DB
	username string
	now      func() time.Time
}

// NewStore creates a journal for username on top of db.
func NewStore(db *gorm.DB, username string) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db, username: username, now: time.Now}
}

// ErrNotFound is returned when a record is not found.
var ErrNotFound = gorm.ErrRecordNotFound

// journalNamespace scopes game keys so that the same remote game journaled by
// two local users gets two rows.
var journalNamespace = uuid.MustParse("5b0c64c9-2f0e-4a3c-9a55-0f4f6f2d3c11")

// GameKey returns the stable primary key for a remote game seen by username.
func GameKey(id game.ID, username string) uuid.UUID {
	return uuid.NewSHA1(journalNamespace, []byte(string(id)+"\x00"+username))
}

// RecordSnapshot upserts the game row and appends a snapshot row.
func (s *Store) RecordSnapshot(ctx context.Context, g *game.Game) error {
	if s == nil {
		return nil
	}
	row := gameRow(g, s.username, s.now())
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"side", "opponent", "status", "turn", "fen", "result",
				"active", "completed_at", "last_seen", "updated_at",
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		var seq int64
		if err := tx.Model(&Snapshot{}).Where("game_id = ?", row.ID).Count(&seq).Error; err != nil {
			return err
		}
		snap := snapshotRow(g, row.ID, int(seq)+1)
		return tx.Omit(clause.Associations).Create(&snap).Error
	})
}

// RecordMove appends a submitted move.
func (s *Store) RecordMove(ctx context.Context, id game.ID, m api.MoveRequest) error {
	if s == nil {
		return nil
	}
	gameID := GameKey(id, s.username)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Move{}).Where("game_id = ?", gameID).Count(&n).Error; err != nil {
			return err
		}
		move := moveRow(gameID, int(n)+1, m)
		return tx.Create(&move).Error
	})
}

// PersistedGame is a journaled game with its history.
type PersistedGame struct {
	Game      Game
	Snapshots []Snapshot
	Moves     []Move
}

// LoadGame fetches a journaled game by its remote id.
func (s *Store) LoadGame(ctx context.Context, id game.ID) (*PersistedGame, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	var row Game
	if err := s.db.WithContext(ctx).First(&row, "id = ?", GameKey(id, s.username)).Error; err != nil {
		return nil, err
	}
	pg := &PersistedGame{Game: row}
	if err := s.db.WithContext(ctx).Where("game_id = ?", row.ID).Order("seq").Find(&pg.Snapshots).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("game_id = ?", row.ID).Order("number").Find(&pg.Moves).Error; err != nil {
		return nil, err
	}
	return pg, nil
}

// Stats represents aggregate counts for the local player's games.
type Stats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Active    int64 `json:"active"`
}

// FetchStats aggregates counts for the local player.
func (s *Store) FetchStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	mine := s.db.WithContext(ctx).Model(&Game{}).Where("username = ?", s.username)
	if err := mine.Session(&gorm.Session{}).Count(&stats.Started).Error; err != nil {
		return stats, err
	}
	if err := mine.Session(&gorm.Session{}).Where("active = ?", true).Count(&stats.Active).Error; err != nil {
		return stats, err
	}
	if err := mine.Session(&gorm.Session{}).Where("completed_at IS NOT NULL").Count(&stats.Completed).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func gameRow(g *game.Game, username string, now time.Time) Game {
	row := Game{
		ID:       GameKey(g.ID, username),
		RemoteID: string(g.ID),
		Username: username,
		Status:   g.Status.String(),
		Turn:     g.TurnSide.String(),
		FEN:      g.Board.FEN(),
		Active:   g.Status == game.Waiting || g.Status == game.Ongoing,
		LastSeen: now,
	}
	me, opp := g.Seat(username)
	if me != nil {
		row.Side = me.Side.String()
	}
	if opp != nil {
		row.Opponent = opp.Username
	}

	out := game.DeriveOutcome(g)
	switch {
	case g.Status == game.Cancelled:
		row.Result = "cancelled"
	case out.Over() && me != nil:
		row.Result = out.For(me.Side).String()
	case out.Over():
		row.Result = out.Kind.String()
	}
	if out.Kind == game.Checkmate || out.Kind == game.Stalemate || g.Status == game.Finished || g.Status == game.Cancelled {
		row.Active = false
		row.CompletedAt = &now
	}
	return row
}

func snapshotRow(g *game.Game, gameID uuid.UUID, seq int) Snapshot {
	return Snapshot{
		GameID:     gameID,
		Seq:        seq,
		Status:     g.Status.String(),
		Turn:       g.TurnSide.String(),
		FEN:        g.Board.FEN(),
		WhiteCheck: g.Check.White,
		BlackCheck: g.Check.Black,
	}
}

func moveRow(gameID uuid.UUID, number int, m api.MoveRequest) Move {
	return Move{
		GameID: gameID,
		Number: number,
		FromSq: m.FromSq,
		ToSq:   m.ToSq,
		Piece:  m.Piece,
		Side:   m.Side,
	}
}
