package pollmux

// A WaitGroup is a [Trigger] with a counter.
//
// Calling the Add or Done method updates the counter and, when the counter
// becomes zero, resumes any task awaiting the WaitGroup.
type WaitGroup struct {
	Trigger
	n int
}

// Add adds delta, which may be negative, to the [WaitGroup] counter.
// If the counter becomes zero, Add resumes any task awaiting wg.
// If the counter goes negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	if wg.n >= 0 {
		wg.n += delta
	}
	if wg.n < 0 {
		panic("pollmux(WaitGroup): negative counter")
	}
	if wg.n == 0 && delta != 0 {
		wg.Notify()
	}
}

// Done decrements the [WaitGroup] counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Await returns a [Task] that suspends until the counter becomes zero, and
// then is done.
func (wg *WaitGroup) Await() Task {
	return guarded(func(w WakeSignal) Poll {
		if wg.n == 0 {
			return Done()
		}
		wg.Subscribe(w)
		return Pending()
	})
}
