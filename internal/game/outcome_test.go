package game

import (
	"testing"

	"chesssync/internal/board"
)

func TestDeriveOutcome(t *testing.T) {
	cases := []struct {
		name   string
		game   Game
		kind   OutcomeKind
		winner board.Side
	}{
		{
			name: "checkmate",
			game: Game{Status: Ongoing, TurnSide: board.White, Check: Check{White: true},
				LegalMoves: map[string][]string{"e1": {}}},
			kind: Checkmate, winner: board.Black,
		},
		{
			name: "stalemate",
			game: Game{Status: Ongoing, TurnSide: board.White, LegalMoves: map[string][]string{}},
			kind: Stalemate,
		},
		{
			name: "opponent flag does not decide",
			game: Game{Status: Ongoing, TurnSide: board.White, Check: Check{Black: true}},
			kind: Stalemate,
		},
		{
			name: "moves left",
			game: Game{Status: Ongoing, TurnSide: board.White, LegalMoves: map[string][]string{"e2": {"e4"}}},
			kind: NoOutcome,
		},
		{
			name: "finished without derivable result",
			game: Game{Status: Finished, TurnSide: board.White, LegalMoves: map[string][]string{"e2": {"e4"}}},
			kind: Undetermined,
		},
		{
			name: "waiting",
			game: Game{Status: Waiting},
			kind: NoOutcome,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveOutcome(&tc.game)
			if got.Kind != tc.kind || got.Winner != tc.winner {
				t.Fatalf("DeriveOutcome = %+v, want %s winner %s", got, tc.kind, tc.winner)
			}
		})
	}
}

func TestBlackKingMated(t *testing.T) {
	g, err := Decode([]byte(`{
	  "id": 9, "status": "ongoing", "turnColor": "black", "legalMoves": {},
	  "pieces": [
	    {"key":"king","color":"black","square":"e8"},
	    {"key":"queen","color":"white","square":"e7"},
	    {"key":"king","color":"white","square":"e6"}
	  ],
	  "check": {"white": false, "black": true}
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	o := DeriveOutcome(g)
	if o.For(board.Black) != Loss || o.For(board.White) != Win {
		t.Fatalf("expected black to lose, got %+v", o)
	}
	at, ok := KingInCheck(&g.Board, g.Check)
	if !ok || at != board.MustSquare("e8") {
		t.Fatalf("king in check at %s,%v", at, ok)
	}
}

func TestStalemateIsDrawForBoth(t *testing.T) {
	o := Outcome{Kind: Stalemate}
	if o.For(board.White) != Draw || o.For(board.Black) != Draw {
		t.Fatalf("stalemate should be a draw for both sides")
	}
}

func TestKingInCheckNone(t *testing.T) {
	b := board.Start()
	if _, ok := KingInCheck(&b, Check{}); ok {
		t.Fatalf("no side flagged, expected no king")
	}
}
