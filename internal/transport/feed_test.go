package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

func TestFeedSubscribesAndForwards(t *testing.T) {
	subscribed := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		var sub Event
		if err := wsjson.Read(ctx, conn, &sub); err != nil {
			return
		}
		subscribed <- sub

		_ = wsjson.Write(ctx, conn, Event{Type: EventMessageNew, ChatID: "c1"})
		_ = wsjson.Write(ctx, conn, Event{Type: EventPresence, Payload: []byte(`{"user_id":5,"status":"online"}`), Timestamp: 1709288130000})
		// block until the client goes away
		_, _, _ = conn.Read(ctx)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feed := NewFeed("ws"+strings.TrimPrefix(srv.URL, "http"), "tok", nil)
	out := make(chan Event, 4)
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, "c1", out) }()

	sub := <-subscribed
	require.Equal(t, EventSubscribe, sub.Type)
	require.Equal(t, "c1", sub.ChatID)

	first := <-out
	require.Equal(t, EventMessageNew, first.Type)
	require.Equal(t, "c1", first.ChatID)

	second := <-out
	presence, err := second.Presence()
	require.NoError(t, err)
	require.Equal(t, "5", presence.UserID)
	require.Equal(t, types.PresenceOnline, presence.State)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestPresenceRejectsOtherEvents(t *testing.T) {
	_, err := Event{Type: EventMessageNew}.Presence()
	require.Error(t, err)
}
