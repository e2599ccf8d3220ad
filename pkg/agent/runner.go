package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// retireWait bounds how long Submit waits for a cancelled goal to unwind
// before starting the next one.
const retireWait = 5 * time.Second

// Runner owns the background worker hosting at most one in-flight goal.
// Submitting a new goal first retires the old work context (cancel and
// replace, never interleave), so a cancelled goal can never poison a
// subsequent unrelated one.
type Runner struct {
	newLoop func() *Loop

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner. newLoop is invoked once per submitted goal so
// every goal gets a fresh state machine.
func NewRunner(newLoop func() *Loop) *Runner {
	return &Runner{newLoop: newLoop}
}

// Submit starts a new goal, retiring any in-flight one first. The returned
// channel delivers the outcome and is closed after delivery.
func (r *Runner) Submit(goal string) <-chan Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.retireLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	out := make(chan Outcome, 1)
	loop := r.newLoop()
	go func() {
		defer close(done)
		defer cancel()
		outcome := loop.Run(ctx, goal)
		out <- outcome
		close(out)
	}()
	return out
}

// Cancel stops the in-flight goal, if any, and waits briefly for it to
// unwind. Safe to call when idle.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retireLocked()
}

func (r *Runner) retireLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(retireWait):
		slog.Warn("Timed out waiting for cancelled goal to unwind")
	}
	r.cancel = nil
	r.done = nil
}
