package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// ErrUnknownChat is returned when sending to a chat that does not exist.
var ErrUnknownChat = errors.New("unknown chat")

// Backend serves a conversation from the local database. It stands in for
// the remote chat API: writes land as confirmed rows and only become
// visible to a session through the next page fetch.
type Backend struct {
	db       *sql.DB
	selfID   string
	pageSize int
	now      func() time.Time
}

func NewBackend(db *sql.DB, selfID string, pageSize int) *Backend {
	return &Backend{db: db, selfID: selfID, pageSize: pageSize, now: time.Now}
}

// FetchPage implements the conversation fetch contract.
func (b *Backend) FetchPage(ctx context.Context, conversationID, cursor string) (types.Page, error) {
	return GetMessagesPage(ctx, b.db, conversationID, cursor, b.pageSize)
}

// SendMessage records text from the local user, echoing clientID.
func (b *Backend) SendMessage(ctx context.Context, conversationID, text, clientID string) error {
	_, err := b.Post(ctx, conversationID, b.selfID, text, clientID)
	return err
}

// Post appends a message from any sender.
func (b *Backend) Post(ctx context.Context, conversationID, senderID, text, clientID string) (types.Message, error) {
	var exists int
	err := b.db.QueryRowContext(ctx, "SELECT 1 FROM chats WHERE id = ?", conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Message{}, ErrUnknownChat
	}
	if err != nil {
		return types.Message{}, err
	}
	return CreateMessage(ctx, b.db, types.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      b.now(),
		ClientID:       clientID,
	})
}

// Presence derives online state from recent posting.
func (b *Backend) Presence(ctx context.Context, conversationID string) ([]types.Presence, error) {
	return ListPresence(ctx, b.db, conversationID, b.now(), 5*time.Minute)
}
