package pollmux

// A Trigger resumes suspended tasks.
//
// A task that cannot progress until some event happens subscribes the
// [WakeSignal] it was polled with and returns Pending; calling Notify fires
// every subscribed signal. Signals of tasks that completed or were
// cancelled in the meantime fire as no-ops, so a Trigger never holds a
// dangerous reference.
//
// A Trigger is not synchronized. Subscribe and Notify must be called from
// task functions, or otherwise from the scheduling thread.
type Trigger struct {
	waiters []WakeSignal
}

// Subscribe records w to be fired on the next Notify.
func (tr *Trigger) Subscribe(w WakeSignal) {
	tr.waiters = append(tr.waiters, w)
}

// Notify fires every subscribed signal, in subscription order, and clears
// the subscription list.
func (tr *Trigger) Notify() {
	ws := tr.waiters
	tr.waiters = nil
	for _, w := range ws {
		w.Fire()
	}
}

// Await returns a [Task] that suspends until the next Notify, and then is
// done.
func (tr *Trigger) Await() Task {
	armed := false
	return guarded(func(w WakeSignal) Poll {
		if armed {
			return Done()
		}
		armed = true
		tr.Subscribe(w)
		return Pending()
	})
}
