package conversation

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
	// leaky timers ignore Stop, like a timer whose callback is already running.
	leaky bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	if t.leaky {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	leaky  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), fn: fn, leaky: c.leaky}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

type fakeViewport struct {
	top    int
	height int
	client int
	calls  []scrollCall
}

type scrollCall struct {
	offset int
	smooth bool
}

func (v *fakeViewport) ScrollTop() int    { return v.top }
func (v *fakeViewport) ScrollHeight() int { return v.height }
func (v *fakeViewport) ClientHeight() int { return v.client }

func (v *fakeViewport) ScrollTo(offset int, smooth bool) {
	v.top = offset
	v.calls = append(v.calls, scrollCall{offset: offset, smooth: smooth})
}

type sentMessage struct {
	conversationID string
	text           string
	clientID       string
}

type fakeTransport struct {
	mu       sync.Mutex
	pages    map[string]types.Page
	fetchErr error
	sendErr  error
	// offline sends block until their context is cancelled.
	offline bool
	sent    []sentMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{pages: make(map[string]types.Page)}
}

func (f *fakeTransport) setPage(cursor string, page types.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[cursor] = page
}

func (f *fakeTransport) FetchPage(ctx context.Context, conversationID, cursor string) (types.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return types.Page{}, f.fetchErr
	}
	return f.pages[cursor], nil
}

func (f *fakeTransport) SendMessage(ctx context.Context, conversationID, text, clientID string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{conversationID: conversationID, text: text, clientID: clientID})
	offline, err := f.offline, f.sendErr
	f.mu.Unlock()
	if offline {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// waitForSent blocks until the transport has seen n sends.
func waitForSent(t *testing.T, f *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.sentCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sends, got %d", n, f.sentCount())
		}
		time.Sleep(time.Millisecond)
	}
}

// runNext waits for one posted callback.
func runNext(t *testing.T, loop *ChanLoop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.RunNext(ctx); err != nil {
		t.Fatalf("waiting for loop callback: %v", err)
	}
}

func msg(id, sender, text string, at time.Time) types.Message {
	return types.Message{
		ID:             id,
		ConversationID: "c1",
		SenderID:       sender,
		Text:           text,
		CreatedAt:      at,
		Status:         types.StatusConfirmed,
	}
}

// page builds a newest-first page from chronological messages.
func page(hasMore bool, cursor string, chronological ...types.Message) types.Page {
	out := make([]types.Message, len(chronological))
	for i, m := range chronological {
		out[len(chronological)-1-i] = m
	}
	return types.Page{Messages: out, HasMore: hasMore, NextCursor: cursor}
}
