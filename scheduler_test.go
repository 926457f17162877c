package pollmux_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollmux"
)

// steps returns a task that is polled exactly k times: k-1 Ready results,
// then Done. polls counts the polls it received.
func steps(polls *int, k int) pollmux.Task {
	return pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
		*polls++
		if *polls == k {
			return pollmux.Done()
		}
		return pollmux.Ready(*polls)
	})
}

func TestReadyOnlyTasksCompleteInOneRun(t *testing.T) {
	s := pollmux.New()

	var a, b, c int
	for _, p := range []*int{&a, &b, &c} {
		_, err := s.Register(steps(p, 3))
		require.NoError(t, err)
	}

	stalled := s.RunUntilIdle()

	assert.Empty(t, stalled)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, b)
	assert.Equal(t, 3, c)
}

func TestPendingWithoutFireStalls(t *testing.T) {
	s := pollmux.New()

	id, err := s.Register(pollmux.Never())
	require.NoError(t, err)

	stalled := s.RunUntilIdle()
	require.Equal(t, []pollmux.TaskID{id}, stalled)

	// A second run must terminate too, without re-polling the task.
	assert.Equal(t, []pollmux.TaskID{id}, s.RunUntilIdle())
	assert.Equal(t, []pollmux.TaskID{id}, s.Stalled())
	assert.Equal(t, 1, s.Len())
}

func TestWakeSignalIdempotent(t *testing.T) {
	s := pollmux.New()

	var sig pollmux.WakeSignal
	polls := 0
	_, err := s.Register(pollmux.TaskFunc(func(w pollmux.WakeSignal) pollmux.Poll {
		polls++
		if polls == 1 {
			sig = w
			return pollmux.Pending()
		}
		return pollmux.Done()
	}))
	require.NoError(t, err)

	require.Len(t, s.RunUntilIdle(), 1)

	assert.True(t, sig.Fire())
	assert.False(t, sig.Fire(), "second fire before the re-poll must be a no-op")

	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, 2, polls, "double fire must schedule exactly one poll")

	assert.False(t, sig.Fire(), "firing for a completed task must be a no-op")
}

func TestFireAfterCancel(t *testing.T) {
	s := pollmux.New()

	var sig pollmux.WakeSignal
	_, err := s.Register(pollmux.TaskFunc(func(w pollmux.WakeSignal) pollmux.Poll {
		sig = w
		return pollmux.Pending()
	}))
	require.NoError(t, err)

	require.Len(t, s.RunUntilIdle(), 1)

	id := sig.ID()
	require.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id), "double cancel must report false")

	assert.False(t, sig.Fire())
	assert.Equal(t, 0, s.Len())

	// The queue must not be corrupted by the late fire: a fresh task slots
	// in and runs normally.
	polls := 0
	_, err = s.Register(steps(&polls, 2))
	require.NoError(t, err)
	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, 2, polls)
}

func TestCancelRunnable(t *testing.T) {
	s := pollmux.New()

	polls := 0
	id, err := s.Register(steps(&polls, 2))
	require.NoError(t, err)

	require.True(t, s.Cancel(id))
	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, 0, polls, "a cancelled task must never be polled")
}

func TestRoundRobinFairness(t *testing.T) {
	// N tasks, each needing exactly K polls: all complete after N*K polls,
	// and no task is polled twice in the same round.
	const n, k = 3, 4

	s := pollmux.New()

	var order []int
	for i := 0; i < n; i++ {
		polls := 0
		_, err := s.Register(pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
			polls++
			order = append(order, i)
			if polls == k {
				return pollmux.Done()
			}
			return pollmux.Ready(polls)
		}))
		require.NoError(t, err)
	}

	assert.Empty(t, s.RunUntilIdle())
	require.Len(t, order, n*k)

	for j, task := range order {
		assert.Equal(t, j%n, task, "poll %d went to the wrong task", j)
	}
}

func TestPollTrace(t *testing.T) {
	// Three tasks: A completes after 2 polls, B goes pending after 1 poll
	// until its signal fires and then completes, C completes after 1 poll.
	s := pollmux.New()

	var trace []string

	aPolls := 0
	_, err := s.Register(pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
		trace = append(trace, "A")
		aPolls++
		if aPolls == 2 {
			return pollmux.Done()
		}
		return pollmux.Ready(aPolls)
	}))
	require.NoError(t, err)

	var bSig pollmux.WakeSignal
	bPolls := 0
	bID, err := s.Register(pollmux.TaskFunc(func(w pollmux.WakeSignal) pollmux.Poll {
		trace = append(trace, "B")
		bPolls++
		if bPolls == 1 {
			bSig = w
			return pollmux.Pending()
		}
		return pollmux.Done()
	}))
	require.NoError(t, err)

	_, err = s.Register(pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
		trace = append(trace, "C")
		return pollmux.Done()
	}))
	require.NoError(t, err)

	stalled := s.RunUntilIdle()

	assert.Equal(t, []string{"A", "B", "C", "A"}, trace)
	require.Equal(t, []pollmux.TaskID{bID}, stalled)

	require.True(t, bSig.Fire())
	assert.Empty(t, s.RunUntilIdle())

	assert.Equal(t, []string{"A", "B", "C", "A", "B"}, trace)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerFull(t *testing.T) {
	s := pollmux.New(pollmux.WithCapacity(1))

	polls := 0
	_, err := s.Register(steps(&polls, 1))
	require.NoError(t, err)

	_, err = s.Register(pollmux.Never())
	require.ErrorIs(t, err, pollmux.ErrSchedulerFull)

	// Retiring the first task frees its slot.
	assert.Empty(t, s.RunUntilIdle())
	_, err = s.Register(pollmux.Do(func() {}))
	assert.NoError(t, err)
}

func TestRegisterDuringPoll(t *testing.T) {
	s := pollmux.New()

	var spawned bool
	_, err := s.Register(pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
		s.Register(pollmux.Do(func() { spawned = true }))
		return pollmux.Done()
	}))
	require.NoError(t, err)

	assert.Empty(t, s.RunUntilIdle())
	assert.True(t, spawned, "a task registered mid-run must complete in the same run")
}

func TestUseAfterCompletionPanics(t *testing.T) {
	task := pollmux.Do(func() {})
	require.True(t, task.Poll(pollmux.WakeSignal{}).IsDone())

	assert.PanicsWithValue(t, "pollmux: task polled after completion", func() {
		task.Poll(pollmux.WakeSignal{})
	})
}

func TestTaskPanicPropagates(t *testing.T) {
	s := pollmux.New()

	errBoom := errors.New("boom")
	_, err := s.Register(pollmux.TaskFunc(func(pollmux.WakeSignal) pollmux.Poll {
		panic(errBoom)
	}))
	require.NoError(t, err)

	survivor := 0
	_, err = s.Register(steps(&survivor, 1))
	require.NoError(t, err)

	var tp *pollmux.TaskPanic
	func() {
		defer func() {
			var ok bool
			tp, ok = recover().(*pollmux.TaskPanic)
			require.True(t, ok, "RunUntilIdle must panic with a *TaskPanic")
		}()
		s.RunUntilIdle()
	}()

	assert.Equal(t, errBoom, tp.Value())
	assert.ErrorIs(t, tp, errBoom)
	assert.Contains(t, tp.Error(), "panicked: boom")

	// The panicking task is retired and the scheduler stays usable.
	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, 1, survivor)
	assert.Equal(t, 0, s.Len())
}

func TestObserver(t *testing.T) {
	var got []any
	s := pollmux.New(pollmux.WithObserver(func(_ pollmux.TaskID, v any) {
		got = append(got, v)
	}))

	_, err := s.Register(pollmux.Emit(1, 2, 3))
	require.NoError(t, err)

	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, []any{1, 2, 3}, got)
}

func TestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s := pollmux.New(pollmux.WithLogger(logger))

	_, err := s.Register(pollmux.Do(func() {}))
	require.NoError(t, err)
	s.RunUntilIdle()

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "registered", hook.Entries[0].Message)
}

func TestZeroValueScheduler(t *testing.T) {
	var s pollmux.Scheduler

	polls := 0
	_, err := s.Register(steps(&polls, 2))
	require.NoError(t, err)

	assert.Empty(t, s.RunUntilIdle())
	assert.Equal(t, 2, polls)
}

func TestAutorun(t *testing.T) {
	var wg sync.WaitGroup // For keeping track of goroutines.

	s := pollmux.New()
	s.Autorun(func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RunUntilIdle()
		}()
	})

	done := make(chan struct{})
	polls := 0
	_, err := s.Register(pollmux.TaskFunc(func(w pollmux.WakeSignal) pollmux.Poll {
		polls++
		if polls == 1 {
			wg.Add(1) // Keep track of the timer too.
			time.AfterFunc(10*time.Millisecond, func() {
				defer wg.Done()
				w.Fire()
			})
			return pollmux.Pending()
		}
		close(done)
		return pollmux.Done()
	}))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
	}
	wg.Wait()

	assert.Equal(t, 2, polls)
	assert.Equal(t, 0, s.Len())
}
