package pollmux

// Semaphore provides a way to bound cooperative access to a resource.
// The callers can request access with a given weight.
//
// Waiters are granted in FIFO order. While waiters exist, a fresh Acquire
// queues behind them even if the free weight would cover it, so a stream of
// small acquisitions cannot starve a large one.
//
// A Semaphore is not synchronized. Acquire tasks and Release must run on
// the scheduling thread.
type Semaphore struct {
	size    int64
	cur     int64
	waiters []*semWaiter
}

type semWaiter struct {
	sig     WakeSignal
	n       int64
	granted bool
}

// NewSemaphore creates a new weighted semaphore with the given maximum
// combined weight.
func NewSemaphore(n int64) *Semaphore {
	return &Semaphore{size: n}
}

// Acquire returns a [Task] that suspends until a weight of n is acquired
// from the semaphore, and then is done.
//
// Acquiring more than the semaphore's size can never succeed; such a task
// stalls forever without blocking other waiters.
func (s *Semaphore) Acquire(n int64) Task {
	if n < 0 {
		panic("pollmux(Semaphore): negative weight")
	}
	var w *semWaiter
	return guarded(func(sig WakeSignal) Poll {
		if w != nil {
			if w.granted {
				return Done()
			}
			w.sig = sig
			return Pending()
		}
		if n > s.size {
			return Pending() // Impossible to succeed.
		}
		if len(s.waiters) == 0 && s.size-s.cur >= n {
			s.cur += n
			return Done()
		}
		w = &semWaiter{sig: sig, n: n}
		s.waiters = append(s.waiters, w)
		return Pending()
	})
}

// Release releases the semaphore with a weight of n, granting waiters in
// FIFO order as weight becomes available.
func (s *Semaphore) Release(n int64) {
	if n < 0 {
		panic("pollmux(Semaphore): negative weight")
	}
	s.cur -= n
	if s.cur < 0 {
		panic("pollmux(Semaphore): released more than held")
	}
	s.notifyWaiters()
}

func (s *Semaphore) notifyWaiters() {
	for len(s.waiters) != 0 {
		w := s.waiters[0]
		if s.size-s.cur < w.n {
			break
		}
		s.waiters = s.waiters[1:]
		if !w.sig.Fire() {
			// The waiting task completed or was cancelled; its weight
			// is not granted.
			continue
		}
		s.cur += w.n
		w.granted = true
	}
}
