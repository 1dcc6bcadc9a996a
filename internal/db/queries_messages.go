package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// messageColumns is the explicit column list for SELECT queries.
const messageColumns = `guid, chat_id, sender_id, body, ts, client_id`

// CreateMessage inserts a confirmed message and returns it with its
// assigned id and timestamp.
func CreateMessage(ctx context.Context, db *sql.DB, message types.Message) (types.Message, error) {
	ts := message.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = time.UnixMilli(ts.UnixMilli()).UTC()

	guid, err := generateUniqueGUID(ctx, db, "msg")
	if err != nil {
		return types.Message{}, err
	}

	var clientID any
	if message.ClientID != "" {
		clientID = message.ClientID
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO messages (guid, chat_id, sender_id, body, ts, client_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, guid, message.ConversationID, message.SenderID, message.Text, ts.UnixMilli(), clientID)
	if err != nil {
		return types.Message{}, err
	}

	return types.Message{
		ID:             guid,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Text:           message.Text,
		CreatedAt:      ts,
		Status:         types.StatusConfirmed,
		ClientID:       message.ClientID,
	}, nil
}

// GetMessagesPage returns up to limit messages older than cursor, newest
// first. An empty cursor starts from the newest message.
func GetMessagesPage(ctx context.Context, db *sql.DB, chatID, cursor string, limit int) (types.Page, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = ?`
	args := []any{chatID}
	if cursor != "" {
		ts, guid, err := parseCursor(cursor)
		if err != nil {
			return types.Page{}, err
		}
		query += ` AND (ts < ? OR (ts = ? AND guid < ?))`
		args = append(args, ts, ts, guid)
	}
	query += ` ORDER BY ts DESC, guid DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.Page{}, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return types.Page{}, err
	}

	page := types.Page{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		page.HasMore = true
	}
	if page.HasMore {
		last := page.Messages[len(page.Messages)-1]
		page.NextCursor = formatCursor(last)
	}
	return page, nil
}

// GetMessagesSince returns messages at or after since, oldest first.
func GetMessagesSince(ctx context.Context, db *sql.DB, chatID string, since time.Time) ([]types.Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? AND ts >= ?
		ORDER BY ts ASC, guid ASC
	`, chatID, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var ts int64
		var clientID sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &ts, &clientID); err != nil {
			return nil, err
		}
		msg.CreatedAt = time.UnixMilli(ts).UTC()
		msg.Status = types.StatusConfirmed
		if clientID.Valid {
			msg.ClientID = clientID.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func formatCursor(msg types.Message) string {
	return fmt.Sprintf("%d:%s", msg.CreatedAt.UnixMilli(), msg.ID)
}

func parseCursor(cursor string) (int64, string, error) {
	tsPart, guid, ok := strings.Cut(cursor, ":")
	if !ok || guid == "" {
		return 0, "", fmt.Errorf("invalid cursor %q", cursor)
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return ts, guid, nil
}

func generateUniqueGUID(ctx context.Context, db *sql.DB, prefix string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		guid, err := core.GenerateGUID(prefix)
		if err != nil {
			return "", err
		}
		var exists int
		err = db.QueryRowContext(ctx, "SELECT 1 FROM messages WHERE guid = ?", guid).Scan(&exists)
		if err == sql.ErrNoRows {
			return guid, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed to generate unique %s GUID", prefix)
}
