package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/config"
	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
	"github.com/cubewin07/movie-explorer-sub000/internal/db"
	"github.com/cubewin07/movie-explorer-sub000/internal/logging"
	"github.com/cubewin07/movie-explorer-sub000/internal/transport"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

var (
	errNotInitialized = errors.New("local backend not initialized")
	errNoUser         = errors.New("user id is required (set user.id or pass --user)")
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   *config.Config
	Log      *zap.Logger
	JSONMode bool

	DB     *sql.DB
	local  *db.Backend
	remote *transport.Client

	closers []func()
}

// GetContext loads configuration and logging for a command. Backends are
// opened lazily by OpenBackend.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	path, _ := cmd.Flags().GetString("config")
	jsonMode, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		cfg.User.ID = user
	}

	logger, cleanup, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Config:   cfg,
		Log:      logger,
		JSONMode: jsonMode,
		closers:  []func(){cleanup},
	}, nil
}

// Close releases everything opened through the context.
func (c *CommandContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *CommandContext) requireUser() error {
	if c.Config.User.ID == "" {
		return errNoUser
	}
	return nil
}

// OpenBackend returns the conversation transport for the configured mode.
func (c *CommandContext) OpenBackend() (conversation.Transport, error) {
	switch {
	case c.local != nil:
		return c.local, nil
	case c.remote != nil:
		return c.remote, nil
	}

	if c.Config.Backend.Mode == config.ModeRemote {
		client, err := transport.NewClient(c.Config.Backend.URL, c.Config.Backend.Token, c.Config.Chat.PageSize)
		if err != nil {
			return nil, err
		}
		c.remote = client
		return client, nil
	}

	conn, err := c.openLocalDB(false)
	if err != nil {
		return nil, err
	}
	c.local = db.NewBackend(conn, c.Config.User.ID, c.Config.Chat.PageSize)
	return c.local, nil
}

// openLocalDB opens the SQLite backend. Unless create is set, a missing
// database file is reported as errNotInitialized.
func (c *CommandContext) openLocalDB(create bool) (*sql.DB, error) {
	if c.DB != nil {
		return c.DB, nil
	}
	path := c.Config.Local.DBPath
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errNotInitialized, path)
		}
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	c.DB = conn
	c.closers = append(c.closers, func() { _ = conn.Close() })
	return conn, nil
}

// Conversations lists conversations visible to the user.
func (c *CommandContext) Conversations(ctx context.Context) ([]types.Conversation, error) {
	if _, err := c.OpenBackend(); err != nil {
		return nil, err
	}
	if c.remote != nil {
		return c.remote.Conversations(ctx)
	}
	return db.ListChats(ctx, c.DB)
}

// resolveConversation picks the explicit id, or the most recently active
// conversation when none is given.
func (c *CommandContext) resolveConversation(ctx context.Context, explicit string) (types.Conversation, error) {
	convs, err := c.Conversations(ctx)
	if err != nil {
		return types.Conversation{}, err
	}
	if explicit == "" {
		if len(convs) == 0 {
			return types.Conversation{}, fmt.Errorf("no conversations yet; create one with: %s init <conversation> --member <id>", AppName)
		}
		return convs[0], nil
	}
	for _, conv := range convs {
		if conv.ID == explicit {
			return conv, nil
		}
	}
	if c.remote != nil {
		// The listing may be partial; let the first fetch decide.
		return types.Conversation{ID: explicit}, nil
	}
	return types.Conversation{}, fmt.Errorf("%w: %s", db.ErrUnknownChat, explicit)
}
