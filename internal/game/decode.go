package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"chesssync/internal/board"
)

// ErrMalformedSnapshot wraps every decoding and validation failure.
var ErrMalformedSnapshot = errors.New("malformed game snapshot")

type wireGame struct {
	ID          ID                  `json:"id"`
	Status      string              `json:"status"`
	TurnColor   string              `json:"turnColor"`
	LegalMoves  map[string][]string `json:"legalMoves"`
	Pieces      []wirePiece         `json:"pieces"`
	GamePlayers []wireGamePlayer    `json:"gamePlayers"`
	Check       *wireCheck          `json:"check"`
	LastMove    *wireMoveRef        `json:"lastMove"`
}

type wirePiece struct {
	Key    string `json:"key"`
	Color  string `json:"color"`
	Square string `json:"square"`
}

type wireGamePlayer struct {
	Player struct {
		Username string `json:"username"`
	} `json:"player"`
	Color string `json:"color"`
}

type wireCheck struct {
	White bool `json:"white"`
	Black bool `json:"black"`
}

type wireMoveRef struct {
	FromSq string `json:"fromSq"`
	ToSq   string `json:"toSq"`
}

// Decode parses and validates one snapshot. Join responses and push
// messages share this shape.
func Decode(data []byte) (*Game, error) {
	var w wireGame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	g, err := w.validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return g, nil
}

func (w *wireGame) validate() (*Game, error) {
	if w.ID == "" {
		return nil, errors.New("missing id")
	}
	status, err := ParseStatus(w.Status)
	if err != nil {
		return nil, err
	}
	g := &Game{
		ID:         w.ID,
		Status:     status,
		LegalMoves: make(map[string][]string, len(w.LegalMoves)),
	}

	if w.TurnColor != "" {
		if g.TurnSide, err = board.ParseSide(w.TurnColor); err != nil {
			return nil, err
		}
	} else if status == Ongoing {
		return nil, errors.New("ongoing game without turnColor")
	}

	// squares are stored in the lower-case form Position.Algebraic produces
	for from, dests := range w.LegalMoves {
		origin, err := board.ParseSquare(from)
		if err != nil {
			return nil, fmt.Errorf("legalMoves key: %w", err)
		}
		targets := make([]string, 0, len(dests))
		for _, to := range dests {
			at, err := board.ParseSquare(to)
			if err != nil {
				return nil, fmt.Errorf("legalMoves[%s]: %w", from, err)
			}
			targets = append(targets, at.Algebraic())
		}
		key := origin.Algebraic()
		g.LegalMoves[key] = append(g.LegalMoves[key], targets...)
	}

	g.Pieces = make([]board.Placement, 0, len(w.Pieces))
	for _, p := range w.Pieces {
		kind, err := board.ParseKind(p.Key)
		if err != nil {
			return nil, err
		}
		side, err := board.ParseSide(p.Color)
		if err != nil {
			return nil, err
		}
		at, err := board.ParseSquare(p.Square)
		if err != nil {
			return nil, err
		}
		g.Pieces = append(g.Pieces, board.Placement{At: at, Piece: board.Piece{Kind: kind, Side: side}})
	}
	if g.Board, err = board.FromPlacements(g.Pieces); err != nil {
		return nil, err
	}

	for _, gp := range w.GamePlayers {
		if gp.Player.Username == "" {
			return nil, errors.New("player without username")
		}
		side, err := board.ParseSide(gp.Color)
		if err != nil {
			return nil, err
		}
		g.Players = append(g.Players, Player{Username: gp.Player.Username, Side: side})
	}

	if w.Check != nil {
		g.Check = Check{White: w.Check.White, Black: w.Check.Black}
	}

	if w.LastMove != nil {
		from, err := board.ParseSquare(w.LastMove.FromSq)
		if err != nil {
			return nil, fmt.Errorf("lastMove: %w", err)
		}
		to, err := board.ParseSquare(w.LastMove.ToSq)
		if err != nil {
			return nil, fmt.Errorf("lastMove: %w", err)
		}
		g.LastMove = &MoveRef{From: from, To: to}
	}
	return g, nil
}
