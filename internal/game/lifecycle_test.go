package game

import (
	"errors"
	"testing"
)

func TestLifecycleForward(t *testing.T) {
	var l Lifecycle
	for _, s := range []Status{Waiting, Waiting, Ongoing, Ongoing, Finished} {
		if err := l.Advance(s); err != nil {
			t.Fatalf("Advance(%s): %v", s, err)
		}
	}
	if !l.Terminal() || l.Interactive() {
		t.Fatalf("finished game should be terminal and non-interactive")
	}
}

func TestLifecycleNeverReturnsToWaiting(t *testing.T) {
	var l Lifecycle
	_ = l.Advance(Ongoing)
	if err := l.Advance(Waiting); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if l.Status() != Ongoing {
		t.Fatalf("status changed to %s", l.Status())
	}
}

func TestLifecycleTerminalIsFinal(t *testing.T) {
	var l Lifecycle
	_ = l.Advance(Cancelled)
	if err := l.Advance(Finished); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestLifecycleSkipsMissedStates(t *testing.T) {
	var l Lifecycle
	_ = l.Advance(Waiting)
	if err := l.Advance(Finished); err != nil {
		t.Fatalf("forward jump rejected: %v", err)
	}
}

func TestLifecycleConclude(t *testing.T) {
	var l Lifecycle
	if l.Conclude() {
		t.Fatalf("cannot conclude before the game starts")
	}
	_ = l.Advance(Ongoing)
	if !l.Interactive() || !l.Conclude() || l.Status() != Finished {
		t.Fatalf("expected ongoing game to conclude")
	}
}
