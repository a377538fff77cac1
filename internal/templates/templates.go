// Package templates renders game views as text for the terminal client.
package templates

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"chesssync/internal/board"
	"chesssync/internal/game"
	"chesssync/internal/gamesync"
)

var glyphs = map[board.Piece]string{
	{Kind: board.King, Side: board.White}:   "♔",
	{Kind: board.Queen, Side: board.White}:  "♕",
	{Kind: board.Rook, Side: board.White}:   "♖",
	{Kind: board.Bishop, Side: board.White}: "♗",
	{Kind: board.Knight, Side: board.White}: "♘",
	{Kind: board.Pawn, Side: board.White}:   "♙",
	{Kind: board.King, Side: board.Black}:   "♚",
	{Kind: board.Queen, Side: board.Black}:  "♛",
	{Kind: board.Rook, Side: board.Black}:   "♜",
	{Kind: board.Bishop, Side: board.Black}: "♝",
	{Kind: board.Knight, Side: board.Black}: "♞",
	{Kind: board.Pawn, Side: board.Black}:   "♟",
}

const boardTmpl = `{{.Title}}
{{range .Rows}}{{.Rank}} {{range .Cells}}{{.Open}}{{.Glyph}}{{.Close}}{{end}}
{{end}}  {{range .Files}} {{.}} {{end}}
{{.Status}}
`

var boardTemplate = template.Must(LoadTemplate("board", boardTmpl))

type cell struct {
	Open, Glyph, Close string
}

type row struct {
	Rank  string
	Cells []cell
}

type boardData struct {
	Title  string
	Rows   []row
	Files  []string
	Status string
}

// LoadTemplate parses a text template.
func LoadTemplate(name, content string) (*template.Template, error) {
	return template.New(name).Parse(content)
}

// WriteBoard draws v from the local player's side of the board. The selected
// square is bracketed, its legal targets are starred, and a king in check is
// marked with '!'.
func WriteBoard(w io.Writer, v gamesync.View) error {
	targets := make(map[string]bool, len(v.Targets))
	for _, t := range v.Targets {
		targets[t] = true
	}

	data := boardData{Title: Title(v), Status: StatusLine(v)}
	for r := 0; r < board.Size; r++ {
		var rw row
		for c := 0; c < board.Size; c++ {
			at := board.DisplayToCanonical(board.Position{Row: r, Col: c}, v.Perspective)
			sq := at.Algebraic()
			if c == 0 {
				rw.Rank = sq[1:]
			}
			if r == 0 {
				data.Files = append(data.Files, sq[:1])
			}

			glyph := "·"
			if p := v.Board.At(at); !p.Empty() {
				glyph = glyphs[p]
			}
			cl := cell{Open: " ", Glyph: glyph, Close: " "}
			switch {
			case v.Selected != nil && *v.Selected == at:
				cl.Open, cl.Close = "[", "]"
			case targets[sq]:
				cl.Close = "*"
			case v.KingInCheck != nil && *v.KingInCheck == at:
				cl.Close = "!"
			}
			rw.Cells = append(rw.Cells, cl)
		}
		data.Rows = append(data.Rows, rw)
	}
	return boardTemplate.Execute(w, data)
}

// Title names the game and its players.
func Title(v gamesync.View) string {
	if v.Game == nil {
		return "no game"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "game %s", v.Game.ID)
	if v.Me != nil {
		fmt.Fprintf(&b, " | you: %s (%s)", v.Me.Username, v.Me.Side)
	}
	if v.Opponent != nil {
		fmt.Fprintf(&b, " | opponent: %s (%s)", v.Opponent.Username, v.Opponent.Side)
	}
	return b.String()
}

// StatusLine describes what happens next, or how the game ended.
func StatusLine(v gamesync.View) string {
	switch v.Status {
	case game.Waiting:
		return "Waiting for an opponent..."
	case game.Cancelled:
		return "Game cancelled."
	case game.Finished:
		return outcomeMessage(v)
	case game.Ongoing:
		msg := "Opponent's move."
		if v.MyTurn {
			msg = "Your move."
		}
		if v.KingInCheck != nil {
			msg += " Check!"
		}
		if v.MyTurn && !v.Interactive {
			msg += " (sending...)"
		}
		return msg
	}
	return ""
}

func outcomeMessage(v gamesync.View) string {
	switch v.Outcome.Kind {
	case game.Stalemate:
		return "Stalemate. Draw."
	case game.Checkmate:
		switch v.Result() {
		case game.Win:
			return "Checkmate. You win!"
		case game.Loss:
			return "Checkmate. You lose."
		}
		return fmt.Sprintf("Checkmate. %s wins.", v.Outcome.Winner)
	}
	return "Game over."
}
