package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// EnsureChat creates a chat if missing and upserts its members.
func EnsureChat(ctx context.Context, db *sql.DB, chatID string, members ...types.Participant) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		chatID, time.Now().UnixMilli()); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id, name) VALUES (?, ?, ?)
			ON CONFLICT(chat_id, user_id) DO UPDATE SET name = CASE WHEN excluded.name = '' THEN chat_members.name ELSE excluded.name END
		`, chatID, m.ID, m.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChats returns chats ordered by most recent activity.
func ListChats(ctx context.Context, db *sql.DB) ([]types.Conversation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, COALESCE(MAX(m.ts), c.created_at) AS last_activity
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.id
		GROUP BY c.id
		ORDER BY last_activity DESC, c.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []types.Conversation
	for rows.Next() {
		var conv types.Conversation
		var last int64
		if err := rows.Scan(&conv.ID, &last); err != nil {
			return nil, err
		}
		conv.LastActivity = time.UnixMilli(last).UTC()
		chats = append(chats, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		members, err := ListMembers(ctx, db, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Participants = members
	}
	return chats, nil
}

// ListMembers returns the participants of a chat.
func ListMembers(ctx context.Context, db *sql.DB, chatID string) ([]types.Participant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, name FROM chat_members WHERE chat_id = ? ORDER BY user_id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []types.Participant
	for rows.Next() {
		var p types.Participant
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		members = append(members, p)
	}
	return members, rows.Err()
}

// ListPresence derives presence from posting activity: members who posted
// within window of now are online.
func ListPresence(ctx context.Context, db *sql.DB, chatID string, now time.Time, window time.Duration) ([]types.Presence, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT cm.user_id, MAX(m.ts)
		FROM chat_members cm
		LEFT JOIN messages m ON m.chat_id = cm.chat_id AND m.sender_id = cm.user_id
		WHERE cm.chat_id = ?
		GROUP BY cm.user_id
		ORDER BY cm.user_id
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Presence
	for rows.Next() {
		var userID string
		var last sql.NullInt64
		if err := rows.Scan(&userID, &last); err != nil {
			return nil, err
		}
		p := types.Presence{UserID: userID, State: types.PresenceOffline}
		if last.Valid {
			p.LastSeen = time.UnixMilli(last.Int64).UTC()
			if now.Sub(p.LastSeen) <= window {
				p.State = types.PresenceOnline
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
