package pollmux

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrSchedulerFull is returned by [Scheduler.Register] when a capacity bound
// set with [WithCapacity] has been reached.
var ErrSchedulerFull = errors.New("pollmux: scheduler is full")

type taskState int8

const (
	stateRunnable taskState = iota
	stateSuspended
)

// A slot is one entry of the task table. Retired slots go on a free list
// and are reused with a bumped generation.
type slot struct {
	task   Task
	gen    uint32
	state  taskState
	queued bool
	live   bool
}

// A Scheduler owns a set of registered Tasks and drives them to completion
// on a single thread.
//
// Register, Fire and Cancel are safe for concurrent use; the mutex guards
// only the task table and the runnable queue. Polls always run one at a
// time, from whichever goroutine calls RunUntilIdle, so task-internal state
// needs no synchronization.
//
// The zero Scheduler is ready to use; [New] is only needed for options.
type Scheduler struct {
	mu       sync.Mutex
	rq       fifo
	slots    []slot
	free     []uint32
	live     int
	capacity int
	running  bool
	autorun  func()
	log      logrus.FieldLogger
	observer func(id TaskID, v any)
}

// An Option configures a [Scheduler].
type Option func(*Scheduler)

// WithCapacity bounds the number of live tasks. Register returns
// [ErrSchedulerFull] beyond the bound. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(s *Scheduler) { s.capacity = n }
}

// WithLogger makes the scheduler trace register, poll, wake and cancel
// activity at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithObserver installs f to be called, on the scheduling thread, with
// every value a task produces via Ready. Without an observer the scheduler
// discards Ready values; it drives execution and produces nothing itself.
func WithObserver(f func(id TaskID, v any)) Option {
	return func(s *Scheduler) { s.observer = f }
}

// New creates a [Scheduler] with the given options.
func New(opts ...Option) *Scheduler {
	s := new(Scheduler)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds t to the scheduler in runnable state, at the tail of the
// runnable queue, and returns its id. Registering is allowed both before a
// run and from within a poll (spawning).
//
// Register is safe for concurrent use.
func (s *Scheduler) Register(t Task) (TaskID, error) {
	if t == nil {
		panic("pollmux: Register called with nil Task")
	}

	var autorun func()

	s.mu.Lock()

	if s.capacity > 0 && s.live >= s.capacity {
		s.mu.Unlock()
		return TaskID{}, ErrSchedulerFull
	}

	id := s.allocLocked(t)
	s.enqueueLocked(id, &s.slots[id.index])

	if !s.running && s.autorun != nil {
		s.running = true
		autorun = s.autorun
	}

	if s.log != nil {
		s.log.WithField("task", id).Debug("registered")
	}

	s.mu.Unlock()

	if autorun != nil {
		autorun()
	}

	return id, nil
}

// Autorun sets up a function to be called whenever a registration or a wake
// makes work available while no run is in progress. One must pass a
// function that calls RunUntilIdle, directly or on another goroutine.
// The scheduler never calls the autorun function twice at the same time.
func (s *Scheduler) Autorun(f func()) {
	s.autorun = f
}

// RunUntilIdle pops and polls runnable tasks in FIFO order until the
// runnable queue is empty, then returns the ids of tasks left suspended.
//
// A stalled task is not an error; a wake signal firing later re-queues it
// and a subsequent run resumes it. The caller decides whether a non-empty
// return is fatal.
//
// If a task panics, the task is retired, the scheduler is left consistent,
// and RunUntilIdle panics with a [*TaskPanic].
//
// RunUntilIdle must not be called twice at the same time.
func (s *Scheduler) RunUntilIdle() []TaskID {
	s.mu.Lock()
	s.running = true

	defer func() {
		s.running = false
		s.mu.Unlock()
	}()

	for !s.rq.Empty() {
		s.dispatch(s.rq.Pop())
	}

	stalled := s.stalledLocked()

	if s.log != nil && len(stalled) != 0 {
		s.log.WithField("stalled", len(stalled)).Debug("idle with suspended tasks")
	}

	return stalled
}

// dispatch advances one task by one poll step. Called with s.mu held;
// unlocks around the poll itself.
func (s *Scheduler) dispatch(id TaskID) {
	sl := s.lookupLocked(id)
	if sl == nil {
		// Cancelled or retired after being queued; the generation tag
		// turns the stale queue entry into a no-op.
		return
	}
	sl.queued = false
	task := sl.task

	s.mu.Unlock()

	res, pv := protectedPoll(task, WakeSignal{s: s, id: id})

	if pv == nil && res.action == pollReady && s.observer != nil {
		s.observer(id, res.value)
	}

	s.mu.Lock()

	if s.log != nil {
		s.log.WithField("task", id).Debug("polled: ", res)
	}

	// The poll ran unlocked; the task may have registered others (growing
	// the table) or cancelled itself. Look the slot up again.
	sl = s.lookupLocked(id)

	if pv != nil {
		if sl != nil {
			s.retireLocked(id)
		}
		panic(&TaskPanic{id: id, value: pv.value, stack: pv.stack})
	}

	if sl == nil {
		return
	}

	switch res.action {
	case pollReady:
		s.enqueueLocked(id, sl)
	case pollPending:
		if !sl.queued {
			sl.state = stateSuspended
		}
		// Otherwise the signal fired during the poll; the task stays
		// runnable and the wake is not lost.
	case pollDone:
		s.retireLocked(id)
	}
}

// wake implements WakeSignal.Fire.
func (s *Scheduler) wake(id TaskID) bool {
	var autorun func()

	s.mu.Lock()

	sl := s.lookupLocked(id)
	if sl == nil || sl.queued {
		s.mu.Unlock()
		return false
	}

	s.enqueueLocked(id, sl)

	if !s.running && s.autorun != nil {
		s.running = true
		autorun = s.autorun
	}

	if s.log != nil {
		s.log.WithField("task", id).Debug("woken")
	}

	s.mu.Unlock()

	if autorun != nil {
		autorun()
	}

	return true
}

// Cancel withdraws a runnable or suspended task, dropping its internal
// state and invalidating any [WakeSignal] bound to it, and reports whether
// a task was withdrawn. Cancelling a completed or unknown id reports false.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.lookupLocked(id)
	if sl == nil {
		return false
	}

	s.retireLocked(id)

	if s.log != nil {
		s.log.WithField("task", id).Debug("cancelled")
	}

	return true
}

// Len returns the number of live (runnable or suspended) tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Stalled returns the ids of tasks currently suspended, in registration
// order of their table slots.
func (s *Scheduler) Stalled() []TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalledLocked()
}

func (s *Scheduler) stalledLocked() []TaskID {
	var ids []TaskID
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.live && sl.state == stateSuspended && !sl.queued {
			ids = append(ids, TaskID{index: uint32(i), gen: sl.gen})
		}
	}
	return ids
}

func (s *Scheduler) lookupLocked(id TaskID) *slot {
	if int(id.index) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[id.index]
	if !sl.live || sl.gen != id.gen {
		return nil
	}
	return sl
}

func (s *Scheduler) allocLocked(t Task) TaskID {
	var i uint32
	if n := len(s.free); n != 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, slot{gen: 1})
		i = uint32(len(s.slots) - 1)
	}
	sl := &s.slots[i]
	sl.task = t
	sl.state = stateRunnable
	sl.live = true
	s.live++
	return TaskID{index: i, gen: sl.gen}
}

// enqueueLocked puts id at the tail of the runnable queue. A task is queued
// at most once at any instant; a second enqueue is a no-op.
func (s *Scheduler) enqueueLocked(id TaskID, sl *slot) {
	if sl.queued {
		return
	}
	sl.state = stateRunnable
	sl.queued = true
	s.rq.Push(id)
}

// retireLocked frees a slot. Bumping the generation invalidates every
// outstanding TaskID and WakeSignal for the old tenant.
func (s *Scheduler) retireLocked(id TaskID) {
	sl := &s.slots[id.index]
	sl.task = nil
	sl.gen++
	sl.queued = false
	sl.live = false
	s.live--
	s.free = append(s.free, id.index)
}
