package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/chat"
	"github.com/cubewin07/movie-explorer-sub000/internal/db"
	"github.com/cubewin07/movie-explorer-sub000/internal/transport"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [conversation]",
		Short: "Interactive chat mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				return writeCommandError(cmd, fmt.Errorf("--json not supported for interactive chat"))
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if err := ctx.requireUser(); err != nil {
				return writeCommandError(cmd, err)
			}

			backend, err := ctx.OpenBackend()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			explicit, _ := cmd.Flags().GetString("conversation")
			if len(args) > 0 {
				explicit = args[0]
			}
			conv, err := ctx.resolveConversation(cmd.Context(), explicit)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			notify, _ := cmd.Flags().GetBool("notify")
			if !cmd.Flags().Changed("notify") {
				notify = ctx.Config.Chat.Notify
			}

			options := chat.Options{
				Transport:    backend,
				Conversation: conv.ID,
				SelfID:       ctx.Config.User.ID,
				Title:        "#" + conv.ID,
				Members:      conv.Participants,
				Presence:     ctx.initialPresence(runCtx, conv.ID),
				Chat:         ctx.Config.Chat,
				Logger:       ctx.Log,
				Triggers:     ctx.startTriggers(runCtx, conv.ID),
				Notify:       notify,
			}
			if err := chat.Run(options); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("conversation", "", "conversation to open (defaults to the most recent)")
	cmd.Flags().Bool("notify", true, "send desktop notifications while scrolled up")
	return cmd
}

func (c *CommandContext) initialPresence(ctx context.Context, conversationID string) []types.Presence {
	if c.local == nil {
		return nil
	}
	presence, err := c.local.Presence(ctx, conversationID)
	if err != nil {
		c.Log.Warn("load presence failed", zap.Error(err))
		return nil
	}
	return presence
}

// startTriggers connects the change source of the configured backend:
// the database watcher locally, the push feed remotely.
func (c *CommandContext) startTriggers(ctx context.Context, conversationID string) <-chan chat.Trigger {
	out := make(chan chat.Trigger, 16)
	switch {
	case c.local != nil:
		go func() {
			err := db.Watch(ctx, c.Config.Local.DBPath, db.DefaultWatchDebounce, c.Log, func() {
				sendTrigger(ctx, out, chat.Trigger{Refresh: true})
				for _, p := range c.initialPresence(ctx, conversationID) {
					p := p
					sendTrigger(ctx, out, chat.Trigger{Presence: &p})
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				c.Log.Warn("database watcher stopped", zap.Error(err))
			}
		}()
	case c.remote != nil && c.Config.Backend.WSURL != "":
		events := make(chan transport.Event, 16)
		feed := transport.NewFeed(c.Config.Backend.WSURL, c.Config.Backend.Token, c.Log)
		go func() {
			_ = feed.Run(ctx, conversationID, events)
		}()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-events:
					if trigger, ok := triggerForEvent(ev, conversationID); ok {
						sendTrigger(ctx, out, trigger)
					}
				}
			}
		}()
	}
	return out
}

func triggerForEvent(ev transport.Event, conversationID string) (chat.Trigger, bool) {
	switch ev.Type {
	case transport.EventMessageNew:
		if ev.ChatID != "" && ev.ChatID != conversationID {
			return chat.Trigger{}, false
		}
		return chat.Trigger{Refresh: true}, true
	case transport.EventPresence:
		p, err := ev.Presence()
		if err != nil {
			return chat.Trigger{}, false
		}
		return chat.Trigger{Presence: &p}, true
	}
	return chat.Trigger{}, false
}

func sendTrigger(ctx context.Context, out chan<- chat.Trigger, trigger chat.Trigger) {
	select {
	case out <- trigger:
	case <-ctx.Done():
	}
}
