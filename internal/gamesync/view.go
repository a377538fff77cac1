package gamesync

import (
	"chesssync/internal/board"
	"chesssync/internal/game"
)

// View is a read-only copy of the controller's state.
type View struct {
	// Game is the last snapshot. It must not be modified.
	Game *game.Game
	// Board is the snapshot's board, or an optimistic preview while a
	// submitted move awaits its echo.
	Board       board.Board
	Status      game.Status
	Me          *game.Player
	Opponent    *game.Player
	Perspective board.Side
	MyTurn      bool
	Interactive bool
	KingInCheck *board.Position
	Outcome     game.Outcome
	Selected    *board.Position
	Targets     []string
}

// Result returns the outcome for the local player.
func (v View) Result() game.Result {
	if v.Me == nil {
		return game.Unknown
	}
	return v.Outcome.For(v.Me.Side)
}

// Update is published after every state change.
type Update struct {
	View View
	// Move is the move that led here, when known.
	Move *board.MoveChange
	// Echo is set when Move was submitted by this client.
	Echo bool
	// Optimistic is set for the local preview of a submitted move.
	Optimistic bool
	// Err is set when a submitted move was refused and its preview undone.
	Err error
}

// Rejection explains why a local command did nothing. Rejections are normal
// outcomes of user input, not errors.
type Rejection uint8

const (
	Accepted Rejection = iota
	NoGame
	NotInteractive
	NotYourTurn
	NotYourPiece
	IllegalTarget
	AwaitingServer
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case NoGame:
		return "no game"
	case NotInteractive:
		return "game not in progress"
	case NotYourTurn:
		return "not your turn"
	case NotYourPiece:
		return "not your piece"
	case IllegalTarget:
		return "illegal target"
	case AwaitingServer:
		return "waiting for the server"
	}
	return "unknown"
}
