package agent

import (
	"context"
	"testing"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/provider"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

// parkedCaller blocks inside the model call until its context is cancelled,
// simulating a goal stuck mid-request.
type parkedCaller struct {
	started chan struct{}
}

func (c *parkedCaller) Call(ctx context.Context, messages []domain.Message, tools []tool.Definition) (*provider.Reply, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func newRunnerWith(caller ModelCaller) *Runner {
	return NewRunner(func() *Loop {
		return New(fastConfig(), caller, tool.DeviceRegistry(), tool.Capabilities{}, nil, nil)
	})
}

func TestRunnerSubmitRetiresInFlightGoal(t *testing.T) {
	parked := &parkedCaller{started: make(chan struct{}, 1)}
	r := newRunnerWith(parked)

	first := r.Submit("first goal")
	select {
	case <-parked.started:
	case <-time.After(time.Second):
		t.Fatal("first goal never reached the model call")
	}

	second := r.Submit("second goal")

	// The first goal must resolve as cancelled before the second starts.
	select {
	case outcome := <-first:
		if outcome.Status != StatusCancelled {
			t.Errorf("first status = %s, want cancelled", outcome.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first goal never delivered an outcome")
	}

	// The second goal runs on its own fresh context and also parks; cancel
	// it to wind down.
	r.Cancel()
	select {
	case outcome := <-second:
		if outcome.Status != StatusCancelled {
			t.Errorf("second status = %s, want cancelled", outcome.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second goal never delivered an outcome")
	}
}

func TestRunnerDeliversOutcome(t *testing.T) {
	caller := &scriptedCaller{replies: []callResult{
		{reply: &provider.Reply{Text: "Done"}},
	}}
	r := newRunnerWith(caller)

	select {
	case outcome := <-r.Submit("quick goal"):
		if outcome.Status != StatusSuccess || outcome.Message != "Done" {
			t.Errorf("outcome = %+v", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}
}

func TestRunnerCancelWhenIdle(t *testing.T) {
	r := newRunnerWith(&scriptedCaller{replies: []callResult{{reply: &provider.Reply{Text: "Done"}}}})
	r.Cancel() // must not panic or block
}

func TestRunnerFreshLoopPerGoal(t *testing.T) {
	count := 0
	caller := &scriptedCaller{replies: []callResult{{reply: &provider.Reply{Text: "Done"}}}}
	r := NewRunner(func() *Loop {
		count++
		return New(fastConfig(), caller, tool.DeviceRegistry(), tool.Capabilities{}, nil, nil)
	})

	<-r.Submit("one")
	<-r.Submit("two")

	if count != 2 {
		t.Errorf("loop constructions = %d, want one per goal", count)
	}
}
