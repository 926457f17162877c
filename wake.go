package pollmux

import "fmt"

// A TaskID is a stable identifier for a registered [Task].
//
// An id is an index into the scheduler's task table, tagged with the
// generation of the slot it was allocated from. Slots are reused after a
// task retires, and reuse bumps the generation, so a stale id can never
// address a later tenant of the same slot.
//
// The zero TaskID addresses no task.
type TaskID struct {
	index uint32
	gen   uint32
}

func (id TaskID) String() string {
	return fmt.Sprintf("%d#%d", id.index, id.gen)
}

// A WakeSignal marks a suspended [Task] runnable again.
//
// The scheduler hands a signal to every poll; a task that returns Pending
// gives the signal to its external dependency, which calls Fire when the
// task can make progress. A signal holds no reference to the task itself,
// only its [TaskID], so it may safely outlive the task.
type WakeSignal struct {
	s  *Scheduler
	id TaskID
}

// ID returns the id of the task the signal is bound to.
func (w WakeSignal) ID() TaskID { return w.id }

// Fire marks the bound task runnable and puts it back in the runnable
// queue, then reports whether it scheduled a poll.
//
// Fire is idempotent. Firing a signal whose task is already scheduled is a
// no-op, as is firing one bound to a completed, cancelled or unknown task;
// both report false. Fire is safe for concurrent use.
func (w WakeSignal) Fire() bool {
	if w.s == nil {
		return false
	}
	return w.s.wake(w.id)
}
