package pollmux

import "fmt"

type pollAction int8

const (
	pollPending pollAction = iota
	pollReady
	pollDone
)

// A Poll is the outcome of advancing a [Task] by one step.
//
// A Poll is created by calling one of [Ready], [Pending] or [Done].
type Poll struct {
	action pollAction
	value  any
}

// Ready returns a [Poll] reporting that the task produced v and may be
// polled again next round.
func Ready(v any) Poll {
	return Poll{action: pollReady, value: v}
}

// Pending returns a [Poll] reporting that the task cannot progress now.
//
// Before returning it, the task must hand the [WakeSignal] it was polled
// with to whatever external event should resume it. Otherwise the task
// stalls forever.
func Pending() Poll {
	return Poll{action: pollPending}
}

// Done returns a [Poll] reporting that the task finished.
// The task must not be polled again.
func Done() Poll {
	return Poll{action: pollDone}
}

// IsReady reports whether p carries a value.
func (p Poll) IsReady() bool { return p.action == pollReady }

// IsPending reports whether the task could not progress.
func (p Poll) IsPending() bool { return p.action == pollPending }

// IsDone reports whether the task finished.
func (p Poll) IsDone() bool { return p.action == pollDone }

// Value returns the value carried by a Ready poll, or nil otherwise.
func (p Poll) Value() any { return p.value }

func (p Poll) String() string {
	switch p.action {
	case pollReady:
		return fmt.Sprintf("Ready(%v)", p.value)
	case pollDone:
		return "Done"
	default:
		return "Pending"
	}
}

// A Task is a unit of resumable, pollable work with private internal state.
//
// Poll advances the task's state machine by exactly one step, never more,
// and may mutate internal state arbitrarily. Which concrete event makes a
// pending task's next poll productive is a property of the task itself; the
// scheduler is only obligated to re-poll once woken.
//
// Poll must not be called on a task that already reported Done.
// Implementations in this package panic when that contract is violated.
type Task interface {
	Poll(w WakeSignal) Poll
}

// A TaskFunc is a func that implements the [Task] interface.
type TaskFunc func(w WakeSignal) Poll

// Poll implements the [Task] interface.
func (f TaskFunc) Poll(w WakeSignal) Poll { return f(w) }
