package conversation

import (
	"testing"
	"time"
)

func newTestCoordinator(vp *fakeViewport) (*ScrollCoordinator, *fakeClock, *ChanLoop) {
	clock := newFakeClock()
	loop := NewChanLoop(16)
	c := NewScrollCoordinator(vp, NewScheduler(clock, loop), DefaultScrollOptions(), nil)
	return c, clock, loop
}

func settle(clock *fakeClock, loop *ChanLoop) {
	clock.Advance(DefaultScrollOptions().SettleDelay)
	loop.RunPending()
}

func TestScrollInitialJumpThenFollow(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)

	c.Committed(0)
	if len(vp.calls) != 0 {
		t.Fatalf("no jump before messages render")
	}
	c.Committed(10)
	if len(vp.calls) != 1 || vp.calls[0] != (scrollCall{offset: 600, smooth: false}) {
		t.Fatalf("expected instant jump to bottom, got %+v", vp.calls)
	}

	vp.top = 0
	c.OnScroll()
	if c.Mode() != ModeAutoFollow {
		t.Fatalf("scrolls before settle must not enter manual, got %s", c.Mode())
	}

	settle(clock, loop)
	vp.top = 600
	vp.height = 1100
	c.Committed(11)
	last := vp.calls[len(vp.calls)-1]
	if last != (scrollCall{offset: 700, smooth: true}) {
		t.Fatalf("expected animated follow to 700, got %+v", last)
	}
}

func TestScrollManualHysteresis(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)
	c.Committed(10)
	settle(clock, loop)

	vp.top = 450
	c.OnScroll()
	if c.Mode() != ModeManual {
		t.Fatalf("expected manual at distance 150, got %s", c.Mode())
	}

	calls := len(vp.calls)
	vp.height = 1100
	c.Committed(11)
	if len(vp.calls) != calls {
		t.Fatalf("manual mode must not auto-scroll")
	}
	if !c.ShowScrollToBottom() {
		t.Fatalf("expected scroll-to-bottom affordance")
	}

	vp.top = 650
	c.OnScroll()
	if c.Mode() != ModeManual {
		t.Fatalf("distance 50 is inside the hysteresis band, expected manual")
	}

	vp.top = 690
	c.OnScroll()
	if c.Mode() != ModeAutoFollow {
		t.Fatalf("expected manual to be left within resume threshold")
	}
	vp.height = 1200
	c.Committed(12)
	if last := vp.calls[len(vp.calls)-1]; last.offset != 800 || !last.smooth {
		t.Fatalf("expected follow after resuming, got %+v", last)
	}
}

func TestScrollAnchorPreservedOnPrepend(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)
	c.Committed(20)
	settle(clock, loop)

	vp.top = 30
	if !c.OnScroll() {
		t.Fatalf("expected pagination trigger near top")
	}
	if !c.BeginPrepend() {
		t.Fatalf("expected prepend to begin")
	}
	if c.BeginPrepend() {
		t.Fatalf("second prepend must wait for the first")
	}
	if c.OnScroll() {
		t.Fatalf("no pagination trigger while loading older")
	}
	if c.Mode() != ModeLoadingOlder {
		t.Fatalf("expected loading-older, got %s", c.Mode())
	}

	const delta = 250
	vp.height += delta
	c.PrependApplied()
	c.Committed(30)

	if vp.top != 30+delta {
		t.Fatalf("expected offset %d, got %d", 30+delta, vp.top)
	}
	if last := vp.calls[len(vp.calls)-1]; last.smooth {
		t.Fatalf("anchor restore must not animate")
	}
	if c.Mode() != ModeManual {
		t.Fatalf("expected to return to manual, got %s", c.Mode())
	}
}

func TestScrollAppendDuringPrependDoesNotRestoreAnchor(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)
	c.Committed(20)
	settle(clock, loop)

	vp.top = 10
	c.OnScroll()
	c.BeginPrepend()
	calls := len(vp.calls)
	vp.height += 40
	c.Committed(21)
	if len(vp.calls) != calls {
		t.Fatalf("append while loading older must not move the viewport")
	}
	c.AbortPrepend()
	if c.Mode() != ModeManual {
		t.Fatalf("expected manual after abort, got %s", c.Mode())
	}
}

func TestScrollSwitchSupersedesSettle(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)

	c.Committed(5)
	clock.Advance(200 * time.Millisecond)
	loop.RunPending()

	c.Reset()
	vp.height = 800
	c.Committed(3)
	if len(vp.calls) != 2 {
		t.Fatalf("expected one jump per switch, got %+v", vp.calls)
	}

	clock.Advance(150 * time.Millisecond)
	loop.RunPending()
	if c.Settled() {
		t.Fatalf("settle from the previous conversation must not apply")
	}

	clock.Advance(200 * time.Millisecond)
	loop.RunPending()
	if !c.Settled() {
		t.Fatalf("expected new settle delay to elapse")
	}
	if len(vp.calls) != 2 {
		t.Fatalf("no extra scrolls expected, got %+v", vp.calls)
	}
}

func TestScrollToBottomAction(t *testing.T) {
	vp := &fakeViewport{height: 1000, client: 400}
	c, clock, loop := newTestCoordinator(vp)
	c.Committed(10)
	settle(clock, loop)

	vp.top = 100
	c.OnScroll()
	c.SetLastVisible(false)
	if !c.ShowScrollToBottom() {
		t.Fatalf("expected affordance")
	}
	c.ScrollToBottom()
	if c.ShowScrollToBottom() || c.Mode() != ModeAutoFollow || vp.top != 600 {
		t.Fatalf("expected follow at bottom, mode=%s top=%d", c.Mode(), vp.top)
	}
}
