package pollmux

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// A TaskPanic wraps a panic that escaped a task's Poll, along with the
// task's id and the stack trace captured at the point of the panic.
// [Scheduler.RunUntilIdle] retires the offending task, restores its own
// state, and then panics with a *TaskPanic.
type TaskPanic struct {
	id    TaskID
	value any
	stack []byte
}

// ID returns the id of the task that panicked.
func (p *TaskPanic) ID() TaskID { return p.id }

// Value returns the value the task panicked with.
func (p *TaskPanic) Value() any { return p.value }

func (p *TaskPanic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pollmux: task %v panicked: %v", p.id, p.value)
	if p.stack != nil {
		b.WriteString("\n\n")
		b.Write(p.stack)
	}
	return b.String()
}

func (p *TaskPanic) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}

type caught struct {
	value any
	stack []byte
}

// protectedPoll runs one poll step, converting a panic into a caught value
// so the scheduler can put its bookkeeping in order before re-panicking.
func protectedPoll(t Task, w WakeSignal) (res Poll, pv *caught) {
	defer func() {
		if v := recover(); v != nil {
			pv = &caught{value: v, stack: debug.Stack()}
		}
	}()
	res = t.Poll(w)
	return res, nil
}
