package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"chesssync/internal/game"
	"chesssync/internal/storage"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want command
	}{
		{"e2e4", command{kind: "move", from: "e2", to: "e4"}},
		{"E2 E4", command{kind: "move", from: "e2", to: "e4"}},
		{"g1-f3", command{kind: "move", from: "g1", to: "f3"}},
		{"click e2", command{kind: "click", from: "e2"}},
		{"board", command{kind: "board"}},
		{"help", command{kind: "help"}},
		{" quit ", command{kind: "quit"}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.in)
		if err != nil {
			t.Fatalf("parseCommand(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseCommand(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "e9e4", "click z1", "resign now", "e2e4e6"} {
		if _, err := parseCommand(bad); err == nil {
			t.Fatalf("parseCommand(%q) should fail", bad)
		}
	}
}

type journalStub map[game.ID]*storage.PersistedGame

func (j journalStub) LoadGame(_ context.Context, id game.ID) (*storage.PersistedGame, error) {
	if pg, ok := j[id]; ok {
		return pg, nil
	}
	return nil, storage.ErrNotFound
}

func TestPrintHistory(t *testing.T) {
	j := journalStub{"12": {
		Game: storage.Game{RemoteID: "12", Username: "alice", Side: "white", Opponent: "bob", Status: "finished", Result: "win"},
		Snapshots: []storage.Snapshot{
			{Seq: 1, FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"},
			{Seq: 2, FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR"},
		},
		Moves: []storage.Move{{Number: 1, FromSq: "e2", ToSq: "e4", Piece: "pawn"}},
	}}

	var out bytes.Buffer
	if err := printHistory(context.Background(), j, "12", &out); err != nil {
		t.Fatalf("printHistory: %v", err)
	}
	for _, want := range []string{
		"game 12: alice (white) vs bob",
		"status finished, result win, 2 snapshots",
		"  1. e2e4 pawn",
		"last position: rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	err := printHistory(context.Background(), j, "99", &out)
	if err == nil || !strings.Contains(err.Error(), "not in the journal") {
		t.Fatalf("missing game err = %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("wrote %q for a missing game", out.String())
	}
}

func TestPrintHistoryPassesThroughErrors(t *testing.T) {
	boom := errors.New("connection refused")
	err := printHistory(context.Background(), failingJournal{boom}, "1", &bytes.Buffer{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

type failingJournal struct{ err error }

func (f failingJournal) LoadGame(context.Context, game.ID) (*storage.PersistedGame, error) {
	return nil, f.err
}
