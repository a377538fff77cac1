package board

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

var toChessKind = map[Kind]chess.PieceType{
	King:   chess.King,
	Queen:  chess.Queen,
	Rook:   chess.Rook,
	Bishop: chess.Bishop,
	Knight: chess.Knight,
	Pawn:   chess.Pawn,
}

// Start returns the standard initial position.
func Start() Board {
	return fromChess(chess.NewGame().Position().Board())
}

// FromFEN builds a board from a full FEN record.
func FromFEN(fen string) (Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Board{}, fmt.Errorf("board: bad fen: %w", err)
	}
	return fromChess(chess.NewGame(opt).Position().Board()), nil
}

// FEN returns the piece-placement field of the board's FEN.
func (b *Board) FEN() string {
	m := make(map[chess.Square]chess.Piece)
	for _, p := range b.Placements() {
		m[toChessSquare(p.At)] = chess.NewPiece(toChessKind[p.Piece.Kind], toChessColor(p.Piece.Side))
	}
	return chess.NewBoard(m).String()
}

func fromChess(cb *chess.Board) Board {
	var b Board
	for sq, p := range cb.SquareMap() {
		piece := fromChessPiece(p)
		if piece.Empty() {
			continue
		}
		b.Set(fromChessSquare(sq), piece)
	}
	return b
}

func fromChessPiece(p chess.Piece) Piece {
	var side Side
	switch p.Color() {
	case chess.White:
		side = White
	case chess.Black:
		side = Black
	default:
		return Piece{}
	}
	for k, t := range toChessKind {
		if t == p.Type() {
			return Piece{Kind: k, Side: side}
		}
	}
	return Piece{}
}

func toChessColor(s Side) chess.Color {
	if s == Black {
		return chess.Black
	}
	return chess.White
}

func fromChessSquare(sq chess.Square) Position {
	return Position{Row: Size - 1 - int(sq.Rank()), Col: int(sq.File())}
}

func toChessSquare(p Position) chess.Square {
	return chess.NewSquare(chess.File(p.Col), chess.Rank(Size-1-p.Row))
}
