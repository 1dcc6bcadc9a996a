package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

type sendHarness struct {
	clock     *fakeClock
	loop      *ChanLoop
	queue     *PendingQueue
	transport *fakeTransport
	ctl       *SendController
}

func newSendHarness(t *testing.T) *sendHarness {
	t.Helper()
	clock := newFakeClock()
	loop := NewChanLoop(16)
	sched := NewScheduler(clock, loop)
	queue := NewPendingQueue(clock)
	queue.Reset("c1")
	transport := newFakeTransport()
	ctl := NewSendController(clock, loop, sched, queue, transport, "me", SendOptions{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctl.Reset(ctx, "c1")
	return &sendHarness{clock: clock, loop: loop, queue: queue, transport: transport, ctl: ctl}
}

func TestSubmitValidation(t *testing.T) {
	h := newSendHarness(t)

	tests := []struct {
		name   string
		text   string
		reason core.ValidationReason
	}{
		{name: "empty", text: "  \r\n ", reason: core.ReasonEmpty},
		{name: "too long", text: strings.Repeat("x", core.DefaultMaxLength+1), reason: core.ReasonTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := h.ctl.Submit(tt.text)
			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Reason != tt.reason {
				t.Fatalf("expected %s validation error, got %v", tt.reason, err)
			}
			if id != "" || h.queue.Len() != 0 {
				t.Fatalf("validation failure must not enqueue")
			}
		})
	}

	if _, err := h.ctl.Submit("ok"); err != nil {
		t.Fatalf("validation errors must not throttle the next submit: %v", err)
	}
}

func TestSubmitCooldown(t *testing.T) {
	h := newSendHarness(t)

	first, err := h.ctl.Submit("one")
	if err != nil || first == "" {
		t.Fatalf("expected first submit accepted: %q %v", first, err)
	}
	if id, err := h.ctl.Submit("two"); id != "" || err != nil {
		t.Fatalf("submit while in flight must be ignored silently: %q %v", id, err)
	}
	runNext(t, h.loop)
	if h.ctl.InFlight() {
		t.Fatalf("transport success should clear in-flight")
	}

	h.clock.Advance(100 * time.Millisecond)
	if id, _ := h.ctl.Submit("three"); id != "" {
		t.Fatalf("submit inside cooldown must be ignored")
	}
	if h.queue.Len() != 1 {
		t.Fatalf("expected exactly one pending entry, got %d", h.queue.Len())
	}

	h.clock.Advance(350 * time.Millisecond)
	if id, _ := h.ctl.Submit("four"); id == "" {
		t.Fatalf("expected submit after cooldown to be accepted")
	}
	runNext(t, h.loop)
	if h.queue.Len() != 2 {
		t.Fatalf("expected two pending entries, got %d", h.queue.Len())
	}
	if entry, _ := h.queue.Get(first); entry.Status != types.StatusSending {
		t.Fatalf("transport ack must not confirm the entry, got %s", entry.Status)
	}
}

func TestTransportFailureMarksFailed(t *testing.T) {
	h := newSendHarness(t)
	h.transport.sendErr = errors.New("connection refused")

	id, _ := h.ctl.Submit("hello")
	runNext(t, h.loop)

	entry, _ := h.queue.Get(id)
	if entry.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", entry.Status)
	}
	if h.ctl.Armed(id) {
		t.Fatalf("failure timer must be cancelled on transport failure")
	}
	banner, ok := h.ctl.Banner()
	if !ok || banner.TempID != id {
		t.Fatalf("expected banner for %s, got %+v", id, banner)
	}

	h.ctl.DismissBanner()
	h.clock.Advance(DefaultSendTimeout)
	h.loop.RunPending()
	if _, ok := h.ctl.Banner(); ok {
		t.Fatalf("timeout must not raise a second banner")
	}
}

func TestTimeoutCancelledByMatch(t *testing.T) {
	for _, leaky := range []bool{false, true} {
		h := newSendHarness(t)
		h.clock.leaky = leaky

		id, _ := h.ctl.Submit("hi")
		runNext(t, h.loop)

		confirmed := []types.Message{msg("s1", "me", "hi", testEpoch.Add(2*time.Second))}
		NewReconciler(0, nil).Reconcile(confirmed, h.queue, h.ctl)
		if h.ctl.Armed(id) {
			t.Fatalf("leaky=%v: timer must be cancelled synchronously on match", leaky)
		}

		h.clock.Advance(2 * DefaultSendTimeout)
		h.loop.RunPending()
		if _, ok := h.ctl.Banner(); ok {
			t.Fatalf("leaky=%v: cancelled timeout raised a banner", leaky)
		}
		if h.queue.Len() != 0 {
			t.Fatalf("leaky=%v: expected empty queue, got %d", leaky, h.queue.Len())
		}
	}
}

func TestRetryReplacesFailedEntry(t *testing.T) {
	h := newSendHarness(t)
	h.transport.sendErr = errors.New("boom")

	failed, _ := h.ctl.Submit("again")
	runNext(t, h.loop)

	if _, err := h.ctl.Retry("tmp-unknown"); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}

	h.transport.sendErr = nil
	h.clock.Advance(time.Second)
	retried, err := h.ctl.Retry(failed)
	if err != nil || retried == "" || retried == failed {
		t.Fatalf("expected new id, got %q %v", retried, err)
	}
	if _, ok := h.queue.Get(failed); ok {
		t.Fatalf("failed entry should be removed on retry")
	}
	entry, _ := h.queue.Get(retried)
	if entry.Text != "again" || entry.Status != types.StatusSending || !entry.CreatedAt.Equal(testEpoch.Add(time.Second)) {
		t.Fatalf("unexpected retried entry: %+v", entry)
	}
	if _, ok := h.ctl.Banner(); ok {
		t.Fatalf("banner should clear on retry")
	}
	if _, err := h.ctl.Retry(retried); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("sending entry is not retryable, got %v", err)
	}
	runNext(t, h.loop)
}

func TestRetryThrottledKeepsFailedEntry(t *testing.T) {
	h := newSendHarness(t)
	h.transport.sendErr = errors.New("boom")

	failed, _ := h.ctl.Submit("x")
	runNext(t, h.loop)

	if id, err := h.ctl.Retry(failed); id != "" || err != nil {
		t.Fatalf("retry inside cooldown must be ignored, got %q %v", id, err)
	}
	if entry, ok := h.queue.Get(failed); !ok || entry.Status != types.StatusFailed {
		t.Fatalf("throttled retry must leave the failed entry in place")
	}
}

func TestResetDropsLateResults(t *testing.T) {
	h := newSendHarness(t)
	h.transport.offline = true

	id, _ := h.ctl.Submit("lost")
	h.queue.Reset("c2")
	h.ctl.Reset(context.Background(), "c2")

	runNext(t, h.loop)
	h.clock.Advance(2 * DefaultSendTimeout)
	h.loop.RunPending()

	if _, ok := h.ctl.Banner(); ok {
		t.Fatalf("previous conversation leaked a banner")
	}
	if h.ctl.Armed(id) || h.ctl.InFlight() {
		t.Fatalf("reset must clear timers and in-flight state")
	}
}
