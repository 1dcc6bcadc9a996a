package conversation

import (
	"testing"
	"time"
)

func TestSchedulerFiresOnLoop(t *testing.T) {
	clock := newFakeClock()
	loop := NewChanLoop(8)
	sched := NewScheduler(clock, loop)

	fired := 0
	task := sched.After("tick", time.Second, func() { fired++ })

	clock.Advance(999 * time.Millisecond)
	loop.RunPending()
	if fired != 0 || !task.Pending() {
		t.Fatalf("expected task to be pending, fired=%d", fired)
	}

	clock.Advance(time.Millisecond)
	if fired != 0 {
		t.Fatalf("expected callback to wait for the loop")
	}
	loop.RunPending()
	if fired != 1 {
		t.Fatalf("expected one fire, got %d", fired)
	}
	if task.Pending() || sched.Len() != 0 {
		t.Fatalf("expected task to be retired after firing")
	}
}

func TestSchedulerCancelAfterTimerQueued(t *testing.T) {
	clock := newFakeClock()
	clock.leaky = true
	loop := NewChanLoop(8)
	sched := NewScheduler(clock, loop)

	fired := false
	task := sched.After("timeout", time.Second, func() { fired = true })

	clock.Advance(time.Second)
	task.Cancel()
	loop.RunPending()

	if fired {
		t.Fatalf("cancelled task must not run even if its timer already fired")
	}
	task.Cancel()
}

func TestSchedulerCancelAll(t *testing.T) {
	clock := newFakeClock()
	loop := NewChanLoop(8)
	sched := NewScheduler(clock, loop)

	count := 0
	sched.After("a", time.Second, func() { count++ })
	sched.After("b", 2*time.Second, func() { count++ })
	sched.CancelAll()

	clock.Advance(time.Minute)
	loop.RunPending()
	if count != 0 || sched.Len() != 0 {
		t.Fatalf("expected nothing to fire, count=%d len=%d", count, sched.Len())
	}
}

func TestNilTaskIsSafe(t *testing.T) {
	var task *Task
	task.Cancel()
	if task.Pending() {
		t.Fatalf("nil task is never pending")
	}
}
