package board

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the fixed edge length of every board.
const Size = 8

// Kind identifies a piece type. The zero value is an empty cell.
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var kindNames = [...]string{"", "king", "queen", "rook", "bishop", "knight", "pawn"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind reads the lower-case wire name of a piece type.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if i > 0 && name == strings.ToLower(s) {
			return Kind(i), nil
		}
	}
	return NoKind, fmt.Errorf("board: unknown piece kind %q", s)
}

// Side is one of the two players. The zero value means no side.
type Side uint8

const (
	NoSide Side = iota
	White
	Black
)

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return ""
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	}
	return NoSide
}

// ParseSide reads "white" or "black".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	return NoSide, fmt.Errorf("board: unknown side %q", s)
}

// Piece is a typed, coloured unit. Two pieces are the same piece when both
// kind and side match, so Piece values compare with ==.
type Piece struct {
	Kind Kind
	Side Side
}

// Empty reports whether p represents an empty cell.
func (p Piece) Empty() bool { return p.Kind == NoKind }

func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}

// Placement is a piece standing on a square.
type Placement struct {
	At    Position
	Piece Piece
}

// ErrOccupied is returned when two placements target the same cell.
var ErrOccupied = errors.New("board: square already occupied")

// Board is an 8x8 grid indexed [row][col] in canonical orientation.
type Board [Size][Size]Piece

// FromPlacements builds a board from scratch. Boards are never patched from
// partial data; callers rebuild from the full piece list every time.
func FromPlacements(ps []Placement) (Board, error) {
	var b Board
	for _, p := range ps {
		if !p.At.Valid() {
			return Board{}, fmt.Errorf("%w: %d,%d", ErrInvalidSquare, p.At.Row, p.At.Col)
		}
		if p.Piece.Empty() {
			continue
		}
		if !b.At(p.At).Empty() {
			return Board{}, fmt.Errorf("%w: %s", ErrOccupied, p.At)
		}
		b[p.At.Row][p.At.Col] = p.Piece
	}
	return b, nil
}

// At returns the piece on p, or the empty piece.
func (b *Board) At(p Position) Piece { return b[p.Row][p.Col] }

// Set places piece on p, replacing whatever was there.
func (b *Board) Set(p Position, piece Piece) { b[p.Row][p.Col] = piece }

// Move relocates the piece on from to to and returns the piece it displaced.
func (b *Board) Move(from, to Position) Piece {
	captured := b.At(to)
	b.Set(to, b.At(from))
	b.Set(from, Piece{})
	return captured
}

// Find returns the first cell holding piece, scanning rank 8 to rank 1.
func (b *Board) Find(piece Piece) (Position, bool) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == piece {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// Placements lists every occupied cell.
func (b *Board) Placements() []Placement {
	var out []Placement
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if !b[r][c].Empty() {
				out = append(out, Placement{At: Position{Row: r, Col: c}, Piece: b[r][c]})
			}
		}
	}
	return out
}
