// parkslot.go: the single wait-for-other-side-or-close primitive shared by
// both endpoints of a pipe.

package mempipe

import (
	"runtime"

	"go.uber.org/atomic"
)

// maxSpin bounds how many times a goroutine re-checks the ring before it
// commits to building a waiter and blocking on it. Under true concurrency
// the other side is usually only a few instructions away from publishing
// its cursor, so a short spin avoids the cost of an allocation and a
// channel handoff for the common case. Mirrors the teacher's own maxSpin.
const maxSpin = 16

// waiter is the handle parked in a parkSlot. Exactly one of these is ever
// live at a time; it is woken by closing its channel exactly once.
type waiter struct {
	wake chan struct{}
}

// closedMarker is a unique sentinel pointer identifying the terminal
// "Closed" state. It is never parked on and its wake channel is never
// touched — only pointer identity matters.
var closedMarker = &waiter{}

// parkOutcome is the result of a call to parkOrDetectClose.
type parkOutcome int

const (
	// retryProgress means the other endpoint made progress (or woke us
	// because it was about to) — recompute occupancy/free-space and try
	// the operation again.
	retryProgress parkOutcome = iota
	// retryClosed means the pipe is closed; there will be no more
	// progress from the other side.
	retryClosed
)

// parkSlot implements the protocol from the design: at most one task is
// ever parked, no lock is held while a task is suspended, and close is
// observable from either side and idempotent. It is sequentially
// consistent: every transition is a single CompareAndSwap or Swap, which
// also acts as the fence between a data copy and a close observation.
type parkSlot struct {
	state atomic.Pointer[waiter]
}

// isClosed is a non-blocking peek used by the writer to fail fast once the
// read end has gone away, even when free space still happens to exist.
func (p *parkSlot) isClosed() bool {
	return p.state.Load() == closedMarker
}

// parkOrDetectClose suspends the calling goroutine until ready reports the
// caller's own condition satisfied, the pipe closes, or the other endpoint
// signals progress. ready must be safe to call repeatedly and cheaply; it
// is invoked from the spin, from just after registering as the parked
// waiter, and has no other side effects expected of it.
func (p *parkSlot) parkOrDetectClose(ready func() bool) parkOutcome {
	for i := 0; i < maxSpin; i++ {
		if p.isClosed() {
			return retryClosed
		}
		if ready() {
			return retryProgress
		}
		runtime.Gosched()
	}

	self := &waiter{wake: make(chan struct{})}
	for {
		switch old := p.state.Load(); old {
		case closedMarker:
			return retryClosed

		case nil:
			if !p.state.CompareAndSwap(nil, self) {
				// Someone else claimed the slot between our Load and
				// our CompareAndSwap; re-read and try again.
				continue
			}
			// Having registered as the parked waiter, check once more:
			// the other side may have made progress, or closed, in the
			// gap between our last check and becoming visible here. If
			// so, undo our own registration and return without ever
			// blocking on the channel.
			if p.isClosed() {
				if p.state.CompareAndSwap(self, nil) {
					return retryClosed
				}
			} else if ready() {
				if p.state.CompareAndSwap(self, nil) {
					return retryProgress
				}
			}
			// Either still genuinely parked, or the CompareAndSwap
			// above lost to a concurrent signal — either way self.wake
			// is closed exactly once, by whichever side wins that race.
			<-self.wake
			if p.state.Load() == closedMarker {
				return retryClosed
			}
			return retryProgress

		default:
			// Another task is already parked. Its presence is itself
			// proof that this side has made progress past whatever the
			// other task was waiting on, so we do not park ourselves:
			// we signal it and retry our own work immediately.
			if p.state.CompareAndSwap(old, nil) {
				close(old.wake)
				return retryProgress
			}
			// Lost the race (the parked task was woken by someone
			// else, or the pipe closed concurrently); re-read and try
			// again rather than risk a double close.
		}
	}
}

// signalProgress wakes whichever task, if any, is currently parked, without
// blocking or parking the caller itself. Every successful read or write
// that changes occupancy must call this after publishing its cursor, since
// parkOrDetectClose only wakes the other side as a side effect of the
// caller itself trying to park; a side that never needs to park would
// otherwise never notify the other one.
func (p *parkSlot) signalProgress() {
	for {
		switch old := p.state.Load(); old {
		case nil, closedMarker:
			return
		default:
			if p.state.CompareAndSwap(old, nil) {
				close(old.wake)
				return
			}
			// Lost the race; re-read and try again.
		}
	}
}

// signalClose atomically transitions the slot to Closed, waking whichever
// task (if any) was parked. Idempotent: concurrent or repeated calls only
// ever close a given waiter's channel once, since exactly one Swap call
// can observe it as the prior value.
func (p *parkSlot) signalClose() {
	old := p.state.Swap(closedMarker)
	if old != nil && old != closedMarker {
		close(old.wake)
	}
}
