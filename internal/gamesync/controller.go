// Package gamesync owns the local copy of one game and keeps it in step with
// the server's push channel.
package gamesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chesssync/internal/api"
	"chesssync/internal/board"
	"chesssync/internal/game"
	"chesssync/internal/logging"
	"chesssync/internal/pending"
	"chesssync/internal/push"
)

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("gamesync: controller stopped")

// Mover is the request side of the server.
type Mover interface {
	SubmitMove(ctx context.Context, id game.ID, m api.MoveRequest) error
	Quit(id game.ID)
}

// Subscriber opens the push channel of a game.
type Subscriber interface {
	Subscribe(ctx context.Context, id game.ID) *push.Subscription
}

// PushSubscriber subscribes through a push.Dialer.
type PushSubscriber struct {
	Dialer  push.Dialer
	URL     func(id game.ID) string
	Options []push.Option
}

func (p PushSubscriber) Subscribe(ctx context.Context, id game.ID) *push.Subscription {
	return push.Subscribe(ctx, p.URL(id), p.Dialer, p.Options...)
}

// Journal persists what the controller sees. Failures are logged only.
type Journal interface {
	RecordSnapshot(ctx context.Context, g *game.Game) error
	RecordMove(ctx context.Context, id game.ID, m api.MoveRequest) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.log = l } }

// WithJournal enables persistence.
func WithJournal(j Journal) Option { return func(c *Controller) { c.journal = j } }

// WithRegistry replaces the pending-move registry.
func WithRegistry(r *pending.Registry) Option { return func(c *Controller) { c.pending = r } }

// WithSubmitTimeout bounds a single move submission.
func WithSubmitTimeout(d time.Duration) Option { return func(c *Controller) { c.submitTimeout = d } }

// Controller is the single owner of a game's state. All mutations happen on
// the goroutine running Run; other goroutines talk to it through commands and
// read copies through View.
type Controller struct {
	username      string
	mover         Mover
	subscriber    Subscriber
	journal       Journal
	log           *zap.Logger
	submitTimeout time.Duration

	cmds    chan func(context.Context)
	updates chan Update
	stopped chan struct{}
	writes  chan journalWrite

	// owned by the Run goroutine
	g        *game.Game
	board    board.Board
	life     game.Lifecycle
	pending  *pending.Registry
	sub      *push.Subscription
	selected *board.Position
	inFlight bool
	// submission numbers the moves sent; a failure only rolls back its own.
	submission uint64
	outcome    game.Outcome

	mu   sync.RWMutex
	view View
}

// New creates a controller for the local player username.
func New(username string, mover Mover, subscriber Subscriber, opts ...Option) *Controller {
	c := &Controller{
		username:      username,
		mover:         mover,
		subscriber:    subscriber,
		submitTimeout: 10 * time.Second,
		cmds:          make(chan func(context.Context)),
		updates:       make(chan Update, 16),
		stopped:       make(chan struct{}),
		writes:        make(chan journalWrite, 64),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrNop(c.log)
	if c.pending == nil {
		c.pending = pending.New()
	}
	return c
}

// Updates delivers state changes. Slow readers miss intermediate updates but
// can always read the latest state from View. The channel is closed when Run
// returns.
func (c *Controller) Updates() <-chan Update { return c.updates }

// View returns the latest state.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Run processes push messages and commands until ctx is done. On return the
// subscription is closed and the server is told the player left.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.updates)
	defer close(c.stopped)

	written := make(chan struct{})
	go c.writeJournal(context.WithoutCancel(ctx), written)
	defer func() {
		c.teardown()
		close(c.writes)
		<-written
	}()

	for {
		var msgs <-chan []byte
		if c.sub != nil {
			msgs = c.sub.Messages()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				c.log.Warn("push channel ended", zap.String("game_id", string(c.gameID())))
				c.sub = nil
				continue
			}
			c.receive(ctx, raw)
		case cmd := <-c.cmds:
			cmd(ctx)
		}
	}
}

// Load adopts a snapshot obtained outside the push channel, such as a join
// response. A different game id replaces the current game and subscription.
func (c *Controller) Load(ctx context.Context, g *game.Game) error {
	return c.call(ctx, func(ctx context.Context) { c.apply(ctx, g) })
}

// Click handles a tap on a displayed cell: it selects a local piece, submits
// a move to a highlighted target, or clears the selection.
func (c *Controller) Click(ctx context.Context, display board.Position) (Rejection, error) {
	var r Rejection
	err := c.call(ctx, func(ctx context.Context) { r = c.click(ctx, display) })
	return r, err
}

// Submit sends the move from -> to given as algebraic squares.
func (c *Controller) Submit(ctx context.Context, from, to string) (Rejection, error) {
	var r Rejection
	err := c.call(ctx, func(ctx context.Context) { r = c.submit(ctx, from, to) })
	return r, err
}

func (c *Controller) call(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	select {
	case c.cmds <- func(ctx context.Context) { fn(ctx); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
	<-done
	return nil
}

func (c *Controller) gameID() game.ID {
	if c.g == nil {
		return ""
	}
	return c.g.ID
}

func (c *Controller) receive(ctx context.Context, raw []byte) {
	g, err := game.Decode(raw)
	if err != nil {
		c.log.Warn("dropping malformed snapshot", zap.String("game_id", string(c.gameID())), zap.Error(err))
		return
	}
	if c.g != nil && g.ID != c.g.ID {
		c.log.Warn("dropping snapshot for another game",
			zap.String("game_id", string(c.g.ID)), zap.String("got", string(g.ID)))
		return
	}
	c.apply(ctx, g)
}

func (c *Controller) apply(ctx context.Context, g *game.Game) {
	if c.g != nil && g.ID != c.g.ID {
		c.log.Info("switching game", zap.String("from", string(c.g.ID)), zap.String("to", string(g.ID)))
		c.closeSubscription()
		c.g = nil
		c.life = game.Lifecycle{}
		c.pending = pending.New()
		c.inFlight = false
	}
	log := c.log.With(zap.String("game_id", string(g.ID)))

	if err := c.life.Advance(g.Status); err != nil {
		log.Warn("dropping stale snapshot", zap.Stringer("status", g.Status), zap.Error(err))
		return
	}

	move := c.inferMove(g)
	echo := move != nil && c.pending.ConsumeIfPresent(move.From, move.To)

	c.g = g
	c.board = g.Board
	c.selected = nil
	c.inFlight = false
	c.outcome = game.DeriveOutcome(g)
	if c.outcome.Kind == game.Checkmate || c.outcome.Kind == game.Stalemate {
		if c.life.Conclude() {
			log.Info("game over", zap.Stringer("outcome", c.outcome.Kind), zap.Stringer("winner", c.outcome.Winner))
		}
	}

	switch {
	case g.Status == game.Cancelled:
		log.Info("game cancelled")
		c.closeSubscription()
	case c.sub == nil && !c.life.Terminal():
		c.sub = c.subscriber.Subscribe(ctx, g.ID)
		log.Debug("subscribed", zap.String("url", c.sub.URL()))
	}

	c.record(journalWrite{game: g, id: g.ID})

	log.Debug("snapshot applied", zap.Stringer("status", c.life.Status()),
		zap.Stringer("turn", g.TurnSide), zap.Bool("echo", echo))
	c.publish(Update{Move: move, Echo: echo})
}

// inferMove prefers the server's move descriptor and falls back to diffing
// the previous authoritative board against the new one.
func (c *Controller) inferMove(g *game.Game) *board.MoveChange {
	if c.g == nil {
		return nil
	}
	prev := c.g.Board
	if g.LastMove != nil {
		from, to := g.LastMove.From, g.LastMove.To
		mc := &board.MoveChange{From: from, To: to, PieceBefore: prev.At(from), PieceAfter: g.Board.At(to)}
		if captured := prev.At(to); !captured.Empty() && captured.Side != mc.PieceBefore.Side {
			mc.Captured = &captured
		}
		return mc
	}
	return board.Diff(prev, g.Board)
}

func (c *Controller) me() *game.Player {
	if c.g == nil {
		return nil
	}
	me, _ := c.g.Seat(c.username)
	return me
}

func (c *Controller) guard(from board.Position) Rejection {
	if c.g == nil {
		return NoGame
	}
	if !c.life.Interactive() {
		return NotInteractive
	}
	me := c.me()
	if me == nil || c.g.TurnSide != me.Side {
		return NotYourTurn
	}
	if c.inFlight {
		return AwaitingServer
	}
	if c.g.Board.At(from).Side != me.Side {
		return NotYourPiece
	}
	return Accepted
}

func (c *Controller) click(ctx context.Context, display board.Position) Rejection {
	if !display.Valid() {
		return IllegalTarget
	}
	if c.g == nil {
		return NoGame
	}
	at := board.DisplayToCanonical(display, c.perspective())
	sq := at.Algebraic()

	if c.selected != nil {
		from := c.selected.Algebraic()
		if c.g.IsLegal(from, sq) {
			return c.submit(ctx, from, sq)
		}
		if *c.selected == at {
			c.selected = nil
			c.publish(Update{})
			return Accepted
		}
	}

	r := c.guard(at)
	if r != Accepted {
		if c.selected != nil {
			c.selected = nil
			c.publish(Update{})
		}
		return r
	}
	c.selected = &at
	c.publish(Update{})
	return Accepted
}

func (c *Controller) submit(ctx context.Context, fromSq, toSq string) Rejection {
	from, err := board.ParseSquare(fromSq)
	if err != nil {
		return NotYourPiece
	}
	to, err := board.ParseSquare(toSq)
	if err != nil {
		return IllegalTarget
	}
	fromSq, toSq = from.Algebraic(), to.Algebraic()
	if r := c.guard(from); r != Accepted {
		c.log.Debug("move rejected locally", zap.String("from", fromSq), zap.String("to", toSq), zap.Stringer("reason", r))
		return r
	}
	if !c.g.IsLegal(fromSq, toSq) {
		c.log.Debug("move rejected locally", zap.String("from", fromSq), zap.String("to", toSq), zap.Stringer("reason", IllegalTarget))
		return IllegalTarget
	}

	piece := c.g.Board.At(from)
	req := api.MoveRequest{FromSq: fromSq, ToSq: toSq, Piece: piece.Kind.String(), Side: piece.Side.String()}
	id := c.g.ID

	c.pending.Register(from, to)
	c.inFlight = true
	c.selected = nil

	preview := c.board
	captured := preview.Move(from, to)
	c.board = preview
	mc := &board.MoveChange{From: from, To: to, PieceBefore: piece, PieceAfter: piece}
	if !captured.Empty() {
		mc.Captured = &captured
	}

	c.record(journalWrite{id: id, move: &req})

	c.submission++
	seq := c.submission
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.submitTimeout)
	go func() {
		defer cancel()
		err := c.mover.SubmitMove(sctx, id, req)
		if err == nil {
			return
		}
		c.log.Warn("move submission failed", zap.String("game_id", string(id)),
			zap.String("from", fromSq), zap.String("to", toSq), zap.Error(err))
		select {
		case c.cmds <- func(context.Context) { c.rollback(id, seq, from, to, err) }:
		case <-c.stopped:
		}
	}()

	c.publish(Update{Move: mc, Optimistic: true})
	return Accepted
}

// rollback drops the preview of a submission the server refused, unless a
// snapshot or a later submission has already superseded it.
func (c *Controller) rollback(id game.ID, seq uint64, from, to board.Position, err error) {
	if !c.inFlight || c.g == nil || c.g.ID != id || c.submission != seq {
		return
	}
	c.pending.ConsumeIfPresent(from, to)
	c.inFlight = false
	c.board = c.g.Board
	c.publish(Update{Err: err})
}

func (c *Controller) perspective() board.Side {
	if me := c.me(); me != nil {
		return me.Side
	}
	return board.White
}

func (c *Controller) closeSubscription() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
}

func (c *Controller) teardown() {
	c.closeSubscription()
	if c.g != nil {
		c.mover.Quit(c.g.ID)
	}
}

// publish rebuilds the view and offers it to Updates without blocking.
func (c *Controller) publish(u Update) {
	v := View{
		Game:        c.g,
		Board:       c.board,
		Status:      c.life.Status(),
		Perspective: c.perspective(),
		Interactive: c.life.Interactive() && !c.inFlight,
		Outcome:     c.outcome,
	}
	if c.g != nil {
		if me, opp := c.g.Seat(c.username); me != nil {
			m := *me
			v.Me = &m
			v.MyTurn = c.life.Interactive() && c.g.TurnSide == me.Side
			if opp != nil {
				o := *opp
				v.Opponent = &o
			}
		}
		if at, ok := game.KingInCheck(&c.g.Board, c.g.Check); ok {
			v.KingInCheck = &at
		}
		if c.selected != nil {
			sel := *c.selected
			v.Selected = &sel
			v.Targets = append([]string(nil), c.g.Targets(sel.Algebraic())...)
		}
	}

	c.mu.Lock()
	c.view = v
	c.mu.Unlock()

	u.View = v
	select {
	case c.updates <- u:
	default:
	}
}
