package storage

import (
	"time"

	"github.com/google/uuid"
)

// Game is one game as seen by one local player.
type Game struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	RemoteID    string    `gorm:"index:idx_remote_user,unique"`
	Username    string    `gorm:"index:idx_remote_user,unique"`
	Side        string
	Opponent    string
	Status      string
	Turn        string
	FEN         string
	Result      string
	Active      bool `gorm:"index"`
	CompletedAt *time.Time
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Snapshots   []Snapshot
	Moves       []Move
}

// Snapshot records one applied server snapshot.
type Snapshot struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID     uuid.UUID `gorm:"type:uuid;index"`
	Game       Game      `gorm:"constraint:OnDelete:CASCADE;"`
	Seq        int
	Status     string
	Turn       string
	FEN        string
	WhiteCheck bool
	BlackCheck bool
	CreatedAt  time.Time
}

// Move stores a move submitted by the local player.
type Move struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID    uuid.UUID `gorm:"type:uuid;index"`
	Number    int
	FromSq    string
	ToSq      string
	Piece     string
	Side      string
	CreatedAt time.Time
}
