package templates

import (
	"bytes"
	"strings"
	"testing"

	"chesssync/internal/board"
	"chesssync/internal/game"
	"chesssync/internal/gamesync"
)

func view(perspective board.Side) gamesync.View {
	g := &game.Game{ID: "5", Status: game.Ongoing, TurnSide: board.White, Board: board.Start()}
	return gamesync.View{
		Game:        g,
		Board:       g.Board,
		Status:      game.Ongoing,
		Me:          &game.Player{Username: "alice", Side: perspective},
		Opponent:    &game.Player{Username: "bob", Side: perspective.Opponent()},
		Perspective: perspective,
		MyTurn:      perspective == board.White,
		Interactive: true,
	}
}

func render(t *testing.T, v gamesync.View) []string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteBoard(&buf, v); err != nil {
		t.Fatalf("WriteBoard: %v", err)
	}
	return strings.Split(buf.String(), "\n")
}

func TestWhiteSeesRankEightOnTop(t *testing.T) {
	lines := render(t, view(board.White))
	if !strings.HasPrefix(lines[0], "game 5 | you: alice (white)") {
		t.Fatalf("title = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "8 ") || !strings.Contains(lines[1], "♜") {
		t.Fatalf("top row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[8], "1 ") || !strings.Contains(lines[8], "♔") {
		t.Fatalf("bottom row = %q", lines[8])
	}
	if got := strings.Join(strings.Fields(lines[9]), ""); got != "abcdefgh" {
		t.Fatalf("files = %q", lines[9])
	}
	if lines[10] != "Your move." {
		t.Fatalf("status = %q", lines[10])
	}
}

func TestBlackSeesBoardRotated(t *testing.T) {
	lines := render(t, view(board.Black))
	if !strings.HasPrefix(lines[1], "1 ") || !strings.HasPrefix(lines[8], "8 ") {
		t.Fatalf("ranks = %q / %q", lines[1], lines[8])
	}
	if got := strings.Join(strings.Fields(lines[9]), ""); got != "hgfedcba" {
		t.Fatalf("files = %q", lines[9])
	}
	if lines[10] != "Opponent's move." {
		t.Fatalf("status = %q", lines[10])
	}
}

func TestSelectionTargetsAndCheck(t *testing.T) {
	v := view(board.White)
	e2 := board.MustSquare("e2")
	e1 := board.MustSquare("e1")
	v.Selected = &e2
	v.Targets = []string{"e3", "e4"}
	v.KingInCheck = &e1

	lines := render(t, v)
	if !strings.Contains(lines[7], "[♙]") {
		t.Fatalf("rank 2 = %q", lines[7])
	}
	if strings.Count(lines[5], "*")+strings.Count(lines[6], "*") != 2 {
		t.Fatalf("targets not marked: %q %q", lines[5], lines[6])
	}
	if !strings.Contains(lines[8], "♔!") {
		t.Fatalf("rank 1 = %q", lines[8])
	}
	if lines[10] != "Your move. Check!" {
		t.Fatalf("status = %q", lines[10])
	}
}

func TestStatusLine(t *testing.T) {
	me := &game.Player{Username: "alice", Side: board.White}
	cases := []struct {
		name string
		v    gamesync.View
		want string
	}{
		{"waiting", gamesync.View{Status: game.Waiting}, "Waiting for an opponent..."},
		{"cancelled", gamesync.View{Status: game.Cancelled}, "Game cancelled."},
		{"win", gamesync.View{Status: game.Finished, Me: me, Outcome: game.Outcome{Kind: game.Checkmate, Winner: board.White}}, "Checkmate. You win!"},
		{"loss", gamesync.View{Status: game.Finished, Me: me, Outcome: game.Outcome{Kind: game.Checkmate, Winner: board.Black}}, "Checkmate. You lose."},
		{"spectator", gamesync.View{Status: game.Finished, Outcome: game.Outcome{Kind: game.Checkmate, Winner: board.Black}}, "Checkmate. black wins."},
		{"stalemate", gamesync.View{Status: game.Finished, Me: me, Outcome: game.Outcome{Kind: game.Stalemate}}, "Stalemate. Draw."},
		{"quit", gamesync.View{Status: game.Finished, Outcome: game.Outcome{Kind: game.Undetermined}}, "Game over."},
		{"sending", gamesync.View{Status: game.Ongoing, MyTurn: true}, "Your move. (sending...)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusLine(tc.v); got != tc.want {
				t.Fatalf("StatusLine = %q, want %q", got, tc.want)
			}
		})
	}
}
