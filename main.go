package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chesssync/internal/api"
	"chesssync/internal/board"
	"chesssync/internal/config"
	"chesssync/internal/game"
	"chesssync/internal/gamesync"
	"chesssync/internal/logging"
	"chesssync/internal/matchmaking"
	"chesssync/internal/pending"
	"chesssync/internal/push"
	"chesssync/internal/session"
	"chesssync/internal/storage"
	"chesssync/internal/templates"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	boardType := flag.String("board", "", "board type to join (default CHESS_BOARD_TYPE)")
	token := flag.String("token", "", "bearer token (default CHESS_TOKEN)")
	listBoards := flag.Bool("boards", false, "list the server's board types and exit")
	history := flag.String("history", "", "print a journaled game by id and exit (needs CHESS_DATABASE_URL)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *boardType != "" {
		cfg.BoardType = *boardType
	}
	if *token != "" {
		cfg.Token = *token
	}
	logging.Debug = *debug || cfg.Debug

	log := logging.New()
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	logging.Debugf("api=%s transport=%s board=%s", cfg.APIURL, cfg.Push.Transport, cfg.BoardType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, runMode{listBoards: *listBoards, history: game.ID(*history)}, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

// runMode selects the one-shot commands that replace playing a game.
type runMode struct {
	listBoards bool
	history    game.ID
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, mode runMode, in io.Reader, out io.Writer) error {
	sess, err := session.FromToken(cfg.Token)
	if err != nil {
		return err
	}
	if sess.Expired(time.Now()) {
		log.Warn("bearer token has expired", zap.Time("expires_at", sess.ExpiresAt))
	}
	client := api.New(cfg.APIURL, sess, api.WithUserAgent(userAgent()), api.WithLogger(log))

	if mode.listBoards {
		return printBoardTypes(ctx, client, out)
	}

	switch {
	case cfg.Username != "":
		sess.Username = cfg.Username
	case sess.Username == "":
		me, err := client.Me(ctx)
		if err != nil {
			return fmt.Errorf("resolve username: %w", err)
		}
		sess.Username = me.Username
	}
	log = log.With(zap.String("user", sess.Username))

	var dialer push.Dialer = push.SSEDialer{}
	if cfg.Push.Transport == config.TransportWebSocket {
		dialer = push.WebSocketDialer{}
	}
	pushOpts := []push.Option{
		push.WithHeader(sess.Header()),
		push.WithLogger(log),
		push.WithBackoff(push.ExponentialBackoff(cfg.Push.MinBackoff, cfg.Push.MaxBackoff)),
	}

	opts := []gamesync.Option{
		gamesync.WithLogger(log),
		gamesync.WithRegistry(pending.New(pending.WithTTL(cfg.PendingTTL))),
	}
	if mode.history != "" && cfg.DB.DSN == "" {
		return errors.New("-history needs CHESS_DATABASE_URL")
	}
	if cfg.DB.DSN != "" {
		db, err := storage.New(cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		store := storage.NewStore(db, sess.Username)
		if mode.history != "" {
			return printHistory(ctx, store, mode.history, out)
		}
		if stats, err := store.FetchStats(ctx); err == nil {
			log.Info("journal ready", zap.Int64("started", stats.Started), zap.Int64("completed", stats.Completed))
		}
		opts = append(opts, gamesync.WithJournal(store))
	}

	fmt.Fprintf(out, "Looking for a %s game...\n", cfg.BoardType)
	mm := matchmaking.New(client, dialer, cfg.MatchmakingURL(sess.Username), log, pushOpts...)
	g, err := mm.Join(ctx, cfg.BoardType)
	if err != nil {
		return err
	}

	subscriber := gamesync.PushSubscriber{
		Dialer:  dialer,
		URL:     func(id game.ID) string { return cfg.GameURL(string(id), sess.Username) },
		Options: pushOpts,
	}
	ctrl := gamesync.New(sess.Username, client, subscriber, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	if err := ctrl.Load(ctx, g); err != nil {
		return err
	}
	go readCommands(ctx, cancel, ctrl, in, out)

	for u := range ctrl.Updates() {
		if u.Err != nil {
			fmt.Fprintf(out, "move refused: %v\n", u.Err)
		}
		if u.Move != nil && !u.Echo && !u.Optimistic {
			fmt.Fprintf(out, "\n%s played %s%s\n", u.Move.PieceBefore, u.Move.From, u.Move.To)
		}
		if err := templates.WriteBoard(out, u.View); err != nil {
			log.Warn("render failed", zap.Error(err))
		}
		if u.View.Status == game.Cancelled {
			cancel()
		}
	}
	return <-done
}

func printBoardTypes(ctx context.Context, client *api.Client, out io.Writer) error {
	types, err := client.BoardTypes(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-12s %s\n", k, types[k])
	}
	return nil
}

type historyLoader interface {
	LoadGame(ctx context.Context, id game.ID) (*storage.PersistedGame, error)
}

// printHistory shows a journaled game: who played, how it ended, the moves
// submitted from this client and the last board seen.
func printHistory(ctx context.Context, l historyLoader, id game.ID, out io.Writer) error {
	pg, err := l.LoadGame(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("game %s is not in the journal", id)
	}
	if err != nil {
		return err
	}
	g := pg.Game
	fmt.Fprintf(out, "game %s: %s (%s) vs %s\n", g.RemoteID, g.Username, g.Side, g.Opponent)
	result := g.Result
	if result == "" {
		result = "-"
	}
	fmt.Fprintf(out, "status %s, result %s, %d snapshots\n", g.Status, result, len(pg.Snapshots))
	for _, m := range pg.Moves {
		fmt.Fprintf(out, "%3d. %s%s %s\n", m.Number, m.FromSq, m.ToSq, m.Piece)
	}
	if n := len(pg.Snapshots); n > 0 {
		fmt.Fprintf(out, "last position: %s\n", pg.Snapshots[n-1].FEN)
	}
	return nil
}

type command struct {
	kind     string // move, click, board, quit, help
	from, to string
}

// parseCommand reads "e2e4", "e2 e4", "click e2", "board", "help" or "quit".
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	switch {
	case len(fields) == 0:
		return command{}, errors.New("empty command")
	case len(fields) == 1 && (fields[0] == "quit" || fields[0] == "exit"):
		return command{kind: "quit"}, nil
	case len(fields) == 1 && fields[0] == "board":
		return command{kind: "board"}, nil
	case len(fields) == 1 && fields[0] == "help":
		return command{kind: "help"}, nil
	case len(fields) == 2 && fields[0] == "click":
		if _, err := board.ParseSquare(fields[1]); err != nil {
			return command{}, err
		}
		return command{kind: "click", from: fields[1]}, nil
	}

	joined := strings.Join(fields, "")
	joined = strings.ReplaceAll(joined, "-", "")
	if len(joined) != 4 {
		return command{}, fmt.Errorf("unknown command %q", line)
	}
	for _, sq := range []string{joined[:2], joined[2:]} {
		if _, err := board.ParseSquare(sq); err != nil {
			return command{}, err
		}
	}
	return command{kind: "move", from: joined[:2], to: joined[2:]}, nil
}

const helpText = `commands:
  e2e4         move from e2 to e4
  click e2     select a piece or a highlighted target
  board        redraw the board
  quit         leave the game`

func readCommands(ctx context.Context, cancel context.CancelFunc, ctrl *gamesync.Controller, in io.Reader, out io.Writer) {
	defer cancel()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, err := parseCommand(sc.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		var r gamesync.Rejection
		switch cmd.kind {
		case "quit":
			return
		case "help":
			fmt.Fprintln(out, helpText)
			continue
		case "board":
			_ = templates.WriteBoard(out, ctrl.View())
			continue
		case "click":
			v := ctrl.View()
			at := board.CanonicalToDisplay(board.MustSquare(cmd.from), v.Perspective)
			r, err = ctrl.Click(ctx, at)
		case "move":
			r, err = ctrl.Submit(ctx, cmd.from, cmd.to)
		}
		if err != nil {
			return
		}
		if r != gamesync.Accepted {
			fmt.Fprintf(out, "%s\n", r)
		}
	}
}
