package pollmux

import "github.com/eapache/queue"

// fifo is the runnable queue. Insertion order is poll order.
type fifo struct {
	q *queue.Queue
}

func (f *fifo) Empty() bool {
	return f.q == nil || f.q.Length() == 0
}

func (f *fifo) Push(id TaskID) {
	if f.q == nil {
		f.q = queue.New()
	}
	f.q.Add(id)
}

func (f *fifo) Pop() TaskID {
	return f.q.Remove().(TaskID)
}
