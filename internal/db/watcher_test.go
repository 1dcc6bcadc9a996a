package db

import (
	"context"
	"testing"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

func TestWatchSignalsOnWrite(t *testing.T) {
	db, path := openTestDB(t)
	requireChat(t, db, "c1", "ana")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notified := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, nil, func() { notified <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if _, err := CreateMessage(ctx, db, types.Message{ConversationID: "c1", SenderID: "ana", Text: "ping"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected change notification")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch returned %v", err)
	}
}
