package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, path
}

func requireChat(t *testing.T, db *sql.DB, chatID string, members ...string) {
	t.Helper()
	var participants []types.Participant
	for _, m := range members {
		participants = append(participants, types.Participant{ID: m, Name: m})
	}
	if err := EnsureChat(context.Background(), db, chatID, participants...); err != nil {
		t.Fatalf("ensure chat: %v", err)
	}
}
