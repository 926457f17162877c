package pollmux

import "iter"

// guarded wraps a poll step so that polling again after Done panics.
// Contract violations are reported loudly rather than silently tolerated.
func guarded(f func(w WakeSignal) Poll) Task {
	done := false
	return TaskFunc(func(w WakeSignal) Poll {
		if done {
			panic("pollmux: task polled after completion")
		}
		p := f(w)
		if p.action == pollDone {
			done = true
		}
		return p
	})
}

// Do returns a [Task] that calls f once, and then is done.
func Do(f func()) Task {
	return guarded(func(WakeSignal) Poll {
		f()
		return Done()
	})
}

// Never returns a [Task] that never completes and never arranges a wake.
// It stalls on the first poll and stays stalled.
func Never() Task {
	return guarded(func(WakeSignal) Poll {
		return Pending()
	})
}

// Emit returns a [Task] that produces each value in turn, one per poll,
// and then is done.
func Emit(values ...any) Task {
	i := 0
	return guarded(func(WakeSignal) Poll {
		if i == len(values) {
			return Done()
		}
		v := values[i]
		i++
		return Ready(v)
	})
}

type intType interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Range returns a [Task] that produces start, start+step, ... while the
// value is less than stop, one value per poll. step must be positive.
func Range[Int intType](start, stop, step Int) Task {
	cur := start
	return guarded(func(WakeSignal) Poll {
		if cur >= stop {
			return Done()
		}
		v := cur
		cur += step
		return Ready(v)
	})
}

// Fibonacci returns a [Task] that produces the Fibonacci numbers
// F(0) through F(until), one per poll.
func Fibonacci(until int) Task {
	n, a, b := 0, 0, 1
	return guarded(func(WakeSignal) Poll {
		if n > until {
			return Done()
		}
		n++
		v := a
		a, b = b, a+b
		return Ready(v)
	})
}

// Filter returns a [Task] that produces the values of t for which keep
// returns true. Pending and Done pass through unchanged.
//
// A single poll of the returned task may poll t several times, once per
// discarded value; a filter with a rarely-true predicate over a busy source
// concentrates that source's work into one step.
func Filter(t Task, keep func(v any) bool) Task {
	return guarded(func(w WakeSignal) Poll {
		for {
			p := t.Poll(w)
			if p.action == pollReady && !keep(p.value) {
				continue
			}
			return p
		}
	})
}

// Map returns a [Task] that produces f applied to each value of t.
// Pending and Done pass through unchanged.
func Map(t Task, f func(v any) any) Task {
	return guarded(func(w WakeSignal) Poll {
		p := t.Poll(w)
		if p.action == pollReady {
			return Ready(f(p.value))
		}
		return p
	})
}

// Take returns a [Task] that produces at most n values of t and then is
// done without polling t further.
func Take(t Task, n int) Task {
	return guarded(func(w WakeSignal) Poll {
		if n <= 0 {
			return Done()
		}
		p := t.Poll(w)
		if p.action == pollReady {
			n--
		}
		if p.action == pollDone {
			n = 0
		}
		return p
	})
}

// Chain returns a [Task] that works on each of the given tasks in sequence.
// When one task is done, Chain moves on to the next.
func Chain(s ...Task) Task {
	i := 0
	return guarded(func(w WakeSignal) Poll {
		for i < len(s) {
			p := s[i].Poll(w)
			if p.action == pollDone {
				i++
				continue
			}
			return p
		}
		return Done()
	})
}

// Then returns a [Task] that first works on t, then on next after t is
// done.
func Then(t, next Task) Task {
	return Chain(t, next)
}

// FromSeq returns a [Task] that produces each value of seq in turn, one per
// poll, and then is done.
//
// Caveat: requires spawning a goroutine (which is stackful) when the
// returned task is first polled. The goroutine leaks if the returned task
// never completes.
func FromSeq[V any](seq iter.Seq[V]) Task {
	var next func() (V, bool)
	var stop func()
	return guarded(func(WakeSignal) Poll {
		if next == nil {
			next, stop = iter.Pull(seq)
		}
		v, ok := next()
		if !ok {
			stop()
			return Done()
		}
		return Ready(v)
	})
}
