package game

import "chesssync/internal/board"

// OutcomeKind classifies how a game ended.
type OutcomeKind uint8

const (
	NoOutcome OutcomeKind = iota
	Checkmate
	Stalemate
	// Undetermined is a finished game whose result cannot be derived from
	// the snapshot, e.g. the opponent quit.
	Undetermined
)

func (k OutcomeKind) String() string {
	switch k {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Undetermined:
		return "undetermined"
	}
	return "none"
}

// Result is an outcome seen from one side.
type Result uint8

const (
	Unknown Result = iota
	Win
	Loss
	Draw
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	}
	return "unknown"
}

// Outcome is the end-of-game verdict. Winner is NoSide for draws.
type Outcome struct {
	Kind   OutcomeKind
	Winner board.Side
}

// Over reports whether there is any outcome at all.
func (o Outcome) Over() bool { return o.Kind != NoOutcome }

// For evaluates the outcome from side's point of view.
func (o Outcome) For(side board.Side) Result {
	switch o.Kind {
	case Stalemate:
		return Draw
	case Checkmate:
		if o.Winner == side {
			return Win
		}
		return Loss
	}
	return Unknown
}

// DeriveOutcome decides the end of the game from the legal-moves map and the
// check flags only. The server never sends a winner.
func DeriveOutcome(g *Game) Outcome {
	if g.Status != Ongoing && g.Status != Finished {
		return Outcome{}
	}
	if g.HasLegalMove() || g.TurnSide == board.NoSide {
		if g.Status == Finished {
			return Outcome{Kind: Undetermined}
		}
		return Outcome{}
	}
	if g.Check.For(g.TurnSide) {
		return Outcome{Kind: Checkmate, Winner: g.TurnSide.Opponent()}
	}
	return Outcome{Kind: Stalemate}
}

// KingInCheck locates the king of whichever side is flagged in check. Check
// itself is never computed locally.
func KingInCheck(b *board.Board, c Check) (board.Position, bool) {
	for _, side := range []board.Side{board.White, board.Black} {
		if c.For(side) {
			return b.Find(board.Piece{Kind: board.King, Side: side})
		}
	}
	return board.Position{}, false
}
