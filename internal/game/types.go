package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"chesssync/internal/board"
)

// Status is the server-reported lifecycle state of a game.
type Status uint8

const (
	StatusUnknown Status = iota
	Waiting
	Ongoing
	Finished
	Cancelled
)

var statusNames = [...]string{"", "waiting", "ongoing", "finished", "cancelled"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// ParseStatus reads a wire status name.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if i > 0 && name == strings.ToLower(s) {
			return Status(i), nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}

// ID identifies a game. The server sends numbers; strings are accepted too.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := json.Number(id).Int64(); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Player is a participant and the side they play.
type Player struct {
	Username string
	Side     board.Side
}

// Check holds the server's in-check flags.
type Check struct {
	White bool
	Black bool
}

// For returns the flag for side.
func (c Check) For(side board.Side) bool {
	switch side {
	case board.White:
		return c.White
	case board.Black:
		return c.Black
	}
	return false
}

// MoveRef is an explicit move descriptor sent alongside a snapshot.
type MoveRef struct {
	From board.Position
	To   board.Position
}

// Game is one decoded server snapshot. It is replaced, never patched, when
// the next snapshot arrives.
type Game struct {
	ID       ID
	Status   Status
	TurnSide board.Side
	// LegalMoves maps an origin square of TurnSide to its destinations.
	LegalMoves map[string][]string
	Pieces     []board.Placement
	Players    []Player
	Check      Check
	LastMove   *MoveRef

	// Board is rebuilt from Pieces when the snapshot is decoded.
	Board board.Board
}

// Targets returns the legal destinations for the piece on square.
func (g *Game) Targets(square string) []string {
	return g.LegalMoves[square]
}

// IsLegal reports whether to is listed as a destination for from.
func (g *Game) IsLegal(from, to string) bool {
	for _, t := range g.LegalMoves[from] {
		if t == to {
			return true
		}
	}
	return false
}

// HasLegalMove reports whether any origin has at least one destination.
func (g *Game) HasLegalMove() bool {
	for _, dests := range g.LegalMoves {
		if len(dests) > 0 {
			return true
		}
	}
	return false
}

// Ready reports whether both sides have a player assigned.
func (g *Game) Ready() bool {
	var white, black bool
	for _, p := range g.Players {
		switch p.Side {
		case board.White:
			white = true
		case board.Black:
			black = true
		}
	}
	return white && black
}

// Seat splits players into the one named username and the other one.
func (g *Game) Seat(username string) (me, opponent *Player) {
	for i := range g.Players {
		p := &g.Players[i]
		if me == nil && strings.EqualFold(p.Username, username) {
			me = p
		} else if opponent == nil {
			opponent = p
		}
	}
	return me, opponent
}
