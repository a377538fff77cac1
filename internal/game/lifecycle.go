package game

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status would move backwards or
// leave a terminal state.
var ErrIllegalTransition = errors.New("illegal status transition")

// Lifecycle tracks Waiting -> Ongoing -> {Finished, Cancelled}. States are
// never re-entered. Forward jumps are accepted since every snapshot carries
// the full state and intermediate ones may have been missed.
type Lifecycle struct {
	status Status
}

func rank(s Status) int {
	switch s {
	case Waiting:
		return 1
	case Ongoing:
		return 2
	case Finished, Cancelled:
		return 3
	}
	return 0
}

// Status returns the current state; StatusUnknown before the first snapshot.
func (l *Lifecycle) Status() Status { return l.status }

// Terminal reports whether the game is over.
func (l *Lifecycle) Terminal() bool { return rank(l.status) == 3 }

// Interactive reports whether moves may be submitted.
func (l *Lifecycle) Interactive() bool { return l.status == Ongoing }

// Advance applies a status from a server snapshot. Repeating the current
// status is a no-op.
func (l *Lifecycle) Advance(next Status) error {
	if next == l.status {
		return nil
	}
	if rank(next) == 0 || l.Terminal() || rank(next) <= rank(l.status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.status, next)
	}
	l.status = next
	return nil
}

// Conclude marks an ongoing game finished after the client derived that the
// side to move has no legal move. It reports whether the state changed.
func (l *Lifecycle) Conclude() bool {
	if l.status != Ongoing {
		return false
	}
	l.status = Finished
	return true
}
