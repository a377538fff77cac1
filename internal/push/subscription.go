// Package push keeps a server-to-client event stream open. Each message is
// one complete game snapshot, so after a reconnect the next message simply
// replaces whatever was missed.
package push

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chesssync/internal/logging"
)

// ErrClosed is returned by streams after Close.
var ErrClosed = errors.New("push: stream closed")

// State is the connection state of a Subscription.
type State int32

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	}
	return "closed"
}

// Stream is one connection's worth of messages.
type Stream interface {
	// Next blocks until a message arrives or the connection fails.
	Next() ([]byte, error)
	Close() error
}

// Dialer opens streams.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Stream, error)
}

// Subscription is a supervised stream: it reconnects with exponential
// backoff until closed and delivers messages in arrival order.
type Subscription struct {
	id         uuid.UUID
	url        string
	header     http.Header
	dialer     Dialer
	log        *zap.Logger
	newBackoff func() backoff.BackOff

	msgs   chan []byte
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Option configures a Subscription.
type Option func(*Subscription)

// WithHeader sets request headers, typically the bearer credential.
func WithHeader(h http.Header) Option { return func(s *Subscription) { s.header = h } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Subscription) { s.log = l } }

// WithBackoff replaces the reconnect policy.
func WithBackoff(f func() backoff.BackOff) Option { return func(s *Subscription) { s.newBackoff = f } }

// ExponentialBackoff returns a policy between min and max that never gives up.
func ExponentialBackoff(min, max time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = min
		b.MaxInterval = max
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}

// Subscribe starts a subscription to url. It runs until ctx is done or Close
// is called.
func Subscribe(ctx context.Context, url string, d Dialer, opts ...Option) *Subscription {
	s := &Subscription{
		id:         uuid.New(),
		url:        url,
		dialer:     d,
		newBackoff: ExponentialBackoff(500*time.Millisecond, 30*time.Second),
		msgs:       make(chan []byte),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = logging.OrNop(s.log).With(zap.String("sub_id", s.id.String()), zap.String("url", url))

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return s
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() uuid.UUID { return s.id }

// URL returns the subscribed URL.
func (s *Subscription) URL() string { return s.url }

// State returns the current connection state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// Messages yields snapshots in order. It is closed once the subscription ends.
func (s *Subscription) Messages() <-chan []byte { return s.msgs }

// Done is closed when the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the subscription and waits for its goroutine. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) setState(st State) { s.state.Store(int32(st)) }

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.msgs)
	defer s.setState(Closed)

	b := s.newBackoff()
	failures := 0
	for {
		s.setState(Connecting)
		stream, err := s.dialer.Dial(ctx, s.url, s.header)
		if err == nil {
			s.setState(Open)
			s.log.Debug("push channel open", zap.Int("failures", failures))
			b.Reset()
			failures = 0
			err = s.pump(ctx, stream)
		}
		if ctx.Err() != nil {
			return
		}
		failures++

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			s.log.Warn("push channel given up", zap.Error(err))
			return
		}
		s.log.Warn("push channel dropped, reconnecting",
			zap.Error(err), zap.Int("attempt", failures), zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Subscription) pump(ctx context.Context, stream Stream) error {
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer func() {
		stop()
		_ = stream.Close()
	}()

	for {
		msg, err := stream.Next()
		if err != nil {
			return err
		}
		if heartbeat(msg) {
			continue
		}
		select {
		case s.msgs <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// heartbeat matches the keep-alive frames servers send between snapshots.
func heartbeat(msg []byte) bool {
	msg = bytes.TrimSpace(msg)
	return len(msg) == 0 || bytes.Equal(msg, []byte("{}"))
}
