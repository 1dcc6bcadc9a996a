package conversation

import (
	"context"
	"time"
)

// Clock supplies wall time and delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Loop serializes callbacks onto the goroutine that owns a Session.
// Every mutation of conversation state happens inside a posted callback
// or a direct call from that goroutine.
type Loop interface {
	Post(fn func())
}

// ChanLoop is a Loop backed by a buffered channel that the owner drains.
type ChanLoop struct {
	ch chan func()
}

func NewChanLoop(size int) *ChanLoop {
	if size <= 0 {
		size = 64
	}
	return &ChanLoop{ch: make(chan func(), size)}
}

func (l *ChanLoop) Post(fn func()) {
	l.ch <- fn
}

// C exposes posted callbacks for owners that select on them.
func (l *ChanLoop) C() <-chan func() {
	return l.ch
}

// RunPending runs every callback already queued and returns how many ran.
func (l *ChanLoop) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-l.ch:
			fn()
			n++
		default:
			return n
		}
	}
}

// RunNext blocks until one callback is available and runs it.
func (l *ChanLoop) RunNext(ctx context.Context) error {
	select {
	case fn := <-l.ch:
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scheduler hands out cancellable delayed tasks that fire on the Loop.
// The live map is the only record of whether a task is still pending.
type Scheduler struct {
	clock Clock
	loop  Loop
	next  uint64
	live  map[uint64]*Task
}

// Task is a handle to one scheduled callback.
type Task struct {
	id    uint64
	name  string
	owner *Scheduler
	timer Timer
}

func NewScheduler(clock Clock, loop Loop) *Scheduler {
	return &Scheduler{
		clock: clock,
		loop:  loop,
		live:  make(map[uint64]*Task),
	}
}

// After schedules fn to run on the loop once d has elapsed.
func (s *Scheduler) After(name string, d time.Duration, fn func()) *Task {
	s.next++
	task := &Task{id: s.next, name: name, owner: s}
	s.live[task.id] = task
	id := task.id
	task.timer = s.clock.AfterFunc(d, func() {
		s.loop.Post(func() {
			if _, ok := s.live[id]; !ok {
				return
			}
			delete(s.live, id)
			fn()
		})
	})
	return task
}

// Pending reports whether the task has neither fired nor been cancelled.
func (t *Task) Pending() bool {
	if t == nil {
		return false
	}
	_, ok := t.owner.live[t.id]
	return ok
}

// Cancel removes the task before it can fire. Safe to call repeatedly.
func (t *Task) Cancel() {
	if !t.Pending() {
		return
	}
	delete(t.owner.live, t.id)
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *Task) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	for _, task := range s.live {
		if task.timer != nil {
			task.timer.Stop()
		}
	}
	s.live = make(map[uint64]*Task)
}

// Len is the number of pending tasks.
func (s *Scheduler) Len() int {
	return len(s.live)
}
