// Package pollmux is a single-threaded cooperative task multiplexer.
//
// It drives many independently-progressing, pollable state machines to
// completion on one thread. A [Scheduler] repeatedly picks a runnable [Task]
// and advances it by exactly one step, a call to its Poll method. The result
// tells the scheduler what to do next: a Ready task is put back at the tail
// of the runnable queue, a Done task is retired, and a Pending task is
// parked until the [WakeSignal] it was polled with fires.
//
// # The Poll Contract
//
// A single Poll call must do a bounded amount of work. There is no
// preemption; if one task loops, no other task runs. This is the defining
// trade of cooperative multiplexing: zero context-switch overhead in
// exchange for every task self-limiting the work done per step.
//
// A task that returns Pending must first have handed its [WakeSignal] to
// whatever external event is supposed to resume it. A pending task whose
// signal never fires is not an error: [Scheduler.RunUntilIdle] still
// terminates and reports the task as stalled, and the caller decides whether
// that is fatal.
//
// Polling a task that has already reported Done is a contract violation and
// panics. It is never silently tolerated, because tolerating it would mask
// real bugs in cooperative state machines.
//
// # Wake-Up Delivery
//
// A [WakeSignal] addresses its task through a generation-tagged [TaskID],
// never through a raw reference. A signal may therefore outlive its task:
// firing a signal for a completed or cancelled task is a harmless no-op, a
// natural race between cancellation and a late-arriving external event.
// Firing is also idempotent; a task is queued at most once at any instant.
//
// Fire and Register are safe for concurrent use, so timers and goroutines
// can wake tasks from outside. The polls themselves always run one at a
// time on whichever goroutine calls [Scheduler.RunUntilIdle], which is why
// task-internal state needs no locks.
//
// # Fairness
//
// The runnable queue is strictly FIFO. Among runnable tasks, registration
// and requeue order is preserved, so no task waits longer than one full
// rotation of the queue for its next step. Tasks become runnable in the
// order their signals fire. No ordering is guaranteed between unrelated
// tasks' internal progress beyond this queue order.
//
// # Composition
//
// Tasks compose by plain delegation: an adapter task owns an inner task and
// forwards Poll ([Filter], [Map], [Take]), or runs tasks back to back
// ([Chain]). Sources like [Range] and [FromSeq] turn ordinary sequences
// into pollable tasks. The cooperative primitives [Trigger], [State],
// [WaitGroup] and [Semaphore] cover the common reasons a task suspends.
//
// Tasks built by this package advance internal state on every poll and are
// single-use: once one reports Done, register a fresh one instead of
// polling it again.
package pollmux
