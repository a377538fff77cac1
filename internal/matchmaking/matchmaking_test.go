package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chesssync/internal/game"
	"chesssync/internal/push"
)

type joinFunc func(ctx context.Context, boardType string) (*game.Game, error)

func (f joinFunc) Join(ctx context.Context, boardType string) (*game.Game, error) { return f(ctx, boardType) }

func decode(t *testing.T, s string) *game.Game {
	t.Helper()
	g, err := game.Decode([]byte(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return g
}

const (
	waitingGame = `{"id":3,"status":"waiting","gamePlayers":[{"player":{"username":"alice"},"color":"white"}]}`
	startedGame = `{"id":3,"status":"ongoing","turnColor":"white","legalMoves":{"e2":["e4"]},` +
		`"pieces":[{"key":"king","color":"white","square":"e1"},{"key":"king","color":"black","square":"e8"}],` +
		`"gamePlayers":[{"player":{"username":"alice"},"color":"white"},{"player":{"username":"bob"},"color":"black"}]}`
)

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

// hub serves the given frames over SSE and counts subscribers.
func hub(t *testing.T, frames ...string) (*httptest.Server, *atomic.Int32) {
	var subs atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subs.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv, &subs
}

func TestJoinReadyGameOpensNoSubscription(t *testing.T) {
	srv, subs := hub(t)
	var board string
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		board = b
		return decode(t, startedGame), nil
	}), push.SSEDialer{}, srv.URL, nil)

	g, err := c.Join(context.Background(), "standard")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if g.Status != game.Ongoing || board != "standard" {
		t.Fatalf("status = %s, board = %q", g.Status, board)
	}
	if n := subs.Load(); n != 0 {
		t.Fatalf("subscriptions = %d", n)
	}
}

func TestJoinWaitsForGameStart(t *testing.T) {
	srv, subs := hub(t, waitingGame, `{"id":`, startedGame)
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		return decode(t, waitingGame), nil
	}), push.SSEDialer{}, srv.URL, nil, push.WithBackoff(noWait))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g, err := c.Join(ctx, "standard")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if g.Status != game.Ongoing || !g.Ready() {
		t.Fatalf("game = %+v", g)
	}
	if n := subs.Load(); n != 1 {
		t.Fatalf("subscriptions = %d", n)
	}
}

func TestJoinOngoingWithoutOpponentStillWaits(t *testing.T) {
	half := `{"id":3,"status":"ongoing","turnColor":"white","gamePlayers":[{"player":{"username":"alice"},"color":"white"}]}`
	srv, subs := hub(t, startedGame)
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		return decode(t, half), nil
	}), push.SSEDialer{}, srv.URL, nil, push.WithBackoff(noWait))

	g, err := c.Join(context.Background(), "standard")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !g.Ready() || subs.Load() != 1 {
		t.Fatalf("expected to wait on the channel, got %+v", g)
	}
}

func TestJoinErrors(t *testing.T) {
	boom := errors.New("boom")
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		return nil, boom
	}), push.SSEDialer{}, "http://unused", nil)
	if _, err := c.Join(context.Background(), "standard"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestJoinCancelled(t *testing.T) {
	srv, _ := hub(t, waitingGame)
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		return decode(t, waitingGame), nil
	}), push.SSEDialer{}, srv.URL, nil, push.WithBackoff(noWait))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := c.Join(ctx, "standard"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentJoinRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
		close(entered)
		<-release
		return decode(t, startedGame), nil
	}), push.SSEDialer{}, "http://unused", nil)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Join(context.Background(), "standard")
		errs <- err
	}()
	<-entered
	if _, err := c.Join(context.Background(), "standard"); !errors.Is(err, ErrJoinInProgress) {
		t.Fatalf("second Join = %v", err)
	}
	close(release)
	if err := <-errs; err != nil {
		t.Fatalf("first Join = %v", err)
	}
	// a finished join frees the client
	release = make(chan struct{})
	close(release)
	entered = make(chan struct{})
	if _, err := c.Join(context.Background(), "standard"); err != nil {
		t.Fatalf("third Join = %v", err)
	}
}

func TestJoinTerminalResponseDoesNotWait(t *testing.T) {
	srv, subs := hub(t)
	for _, status := range []string{"cancelled", "finished"} {
		raw := `{"id":4,"status":"` + status + `","gamePlayers":[{"player":{"username":"alice"},"color":"white"}]}`
		c := New(joinFunc(func(ctx context.Context, b string) (*game.Game, error) {
			return decode(t, raw), nil
		}), push.SSEDialer{}, srv.URL, nil, push.WithBackoff(noWait))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		g, err := c.Join(ctx, "standard")
		cancel()
		if !errors.Is(err, ErrGameOver) {
			t.Fatalf("%s: err = %v", status, err)
		}
		if g == nil || g.ID != "4" {
			t.Fatalf("%s: game = %+v", status, g)
		}
	}
	if n := subs.Load(); n != 0 {
		t.Fatalf("subscriptions = %d", n)
	}
}
