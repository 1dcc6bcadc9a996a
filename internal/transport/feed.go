package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// Push event types.
const (
	EventMessageNew = "message.new"
	EventPresence   = "presence"
	EventSubscribe  = "channel.subscribe"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Event is the envelope of every push message.
type Event struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

type presencePayload struct {
	UserID flexID `json:"user_id"`
	Status string `json:"status"`
}

// Presence decodes a presence event.
func (e Event) Presence() (types.Presence, error) {
	if e.Type != EventPresence {
		return types.Presence{}, fmt.Errorf("not a presence event: %s", e.Type)
	}
	var payload presencePayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return types.Presence{}, fmt.Errorf("decode presence: %w", err)
	}
	p := types.Presence{UserID: string(payload.UserID), State: types.PresenceOffline}
	if payload.Status == string(types.PresenceOnline) {
		p.State = types.PresenceOnline
	}
	if e.Timestamp > 0 {
		p.LastSeen = time.UnixMilli(e.Timestamp).UTC()
	}
	return p, nil
}

// Feed holds a push connection open and forwards events. It only signals
// that something changed; history is always re-read through FetchPage.
type Feed struct {
	url   string
	token string
	log   *zap.Logger
	dial  func(ctx context.Context) (*websocket.Conn, error)
}

func NewFeed(wsURL, token string, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Feed{url: wsURL, token: token, log: log.Named("feed")}
	f.dial = f.dialURL
	return f
}

func (f *Feed) dialURL(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{HTTPHeader: header})
	return conn, err
}

// Run connects, subscribes to conversationID and delivers events to out
// until ctx is done, reconnecting with backoff.
func (f *Feed) Run(ctx context.Context, conversationID string, out chan<- Event) error {
	backoff := minBackoff
	for {
		err := f.session(ctx, conversationID, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn("push connection lost", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (f *Feed) session(ctx context.Context, conversationID string, out chan<- Event) error {
	conn, err := f.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial push feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if conversationID != "" {
		sub := Event{Type: EventSubscribe, ChatID: conversationID, Timestamp: time.Now().UnixMilli()}
		if err := wsjson.Write(ctx, conn, sub); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	f.log.Debug("push connected", zap.String("conversation", conversationID))

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errors.New("server closed connection")
			}
			return err
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
