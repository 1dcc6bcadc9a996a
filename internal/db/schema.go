package db

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
-- Conversations
CREATE TABLE IF NOT EXISTS chats (
  id TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL          -- unix ms
);

-- Conversation members
CREATE TABLE IF NOT EXISTS chat_members (
  chat_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (chat_id, user_id),
  FOREIGN KEY (chat_id) REFERENCES chats(id)
);

-- Confirmed messages
CREATE TABLE IF NOT EXISTS messages (
  guid TEXT PRIMARY KEY,               -- e.g., "msg-a1b2c3d4"
  chat_id TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  body TEXT NOT NULL,
  ts INTEGER NOT NULL,                 -- unix ms, server assigned
  client_id TEXT,                      -- temp id echoed from the sender
  FOREIGN KEY (chat_id) REFERENCES chats(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_chat_ts ON messages(chat_id, ts DESC, guid DESC);
`

// InitSchema creates all tables if they don't exist.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SchemaExists reports whether the messages table is present.
func SchemaExists(db *sql.DB) (bool, error) {
	row := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='messages'")
	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return name == "messages", nil
}
