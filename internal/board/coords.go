package board

import (
	"errors"
	"fmt"
)

// ErrInvalidSquare is returned for square names or coordinates outside the board.
var ErrInvalidSquare = errors.New("board: invalid square")

// Position is a canonical cell coordinate. Row 0 is rank 8, col 0 is file a.
type Position struct {
	Row int
	Col int
}

// Valid reports whether both coordinates are in [0,7].
func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Algebraic returns the square name, e.g. "e4". Calling it on an invalid
// position is a programming error.
func (p Position) Algebraic() string {
	if !p.Valid() {
		panic(fmt.Sprintf("board: position %d,%d out of range", p.Row, p.Col))
	}
	return string([]byte{byte('a' + p.Col), byte('0' + Size - p.Row)})
}

func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return p.Algebraic()
}

// ParseSquare converts an algebraic square name into a canonical position.
// Upper-case files are accepted.
func ParseSquare(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	file := s[0] | 0x20
	rank := s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Position{Row: Size - int(rank-'0'), Col: int(file - 'a')}, nil
}

// MustSquare is ParseSquare for literals.
func MustSquare(s string) Position {
	p, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return p
}

// DisplayToCanonical maps a cell as drawn for perspective onto the canonical
// board. White sees the board as stored; black sees it rotated 180 degrees.
func DisplayToCanonical(p Position, perspective Side) Position {
	if perspective == Black {
		return Position{Row: Size - 1 - p.Row, Col: Size - 1 - p.Col}
	}
	return p
}

// CanonicalToDisplay is the inverse of DisplayToCanonical.
func CanonicalToDisplay(p Position, perspective Side) Position {
	// the rotation is its own inverse
	return DisplayToCanonical(p, perspective)
}
