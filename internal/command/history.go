package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/db"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <conversation>",
		Short: "Print conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				limit = 50
			}
			sinceValue, _ := cmd.Flags().GetString("since")
			var since time.Time
			if sinceValue != "" {
				since, err = core.ParseSince(sinceValue, time.Now())
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			backend, err := ctx.OpenBackend()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			var messages []types.Message
			if ctx.DB != nil && !since.IsZero() {
				messages, err = db.GetMessagesSince(cmd.Context(), ctx.DB, args[0], since)
				if len(messages) > limit {
					messages = messages[len(messages)-limit:]
				}
			} else {
				messages, err = collectHistory(cmd.Context(), backend, args[0], limit, since)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(messages)
			}
			if len(messages) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No messages in #%s\n", args[0])
				return nil
			}
			groups := conversation.Group(messages, nil, conversation.GroupOptions{
				Location:   time.Local,
				ClusterGap: ctx.Config.Chat.ClusterGap,
				SelfID:     ctx.Config.User.ID,
			})
			printHistory(cmd.OutOrStdout(), groups)
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "maximum number of messages")
	cmd.Flags().String("since", "", "only messages after this time (2h, 3d, today, 2024-03-01)")
	return cmd
}

// collectHistory pages backwards until limit messages are gathered, history
// runs out, or pages fall before since. The result is chronological.
func collectHistory(ctx context.Context, fetcher conversation.Fetcher, conversationID string, limit int, since time.Time) ([]types.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var newestFirst []types.Message
	cursor := ""
	for len(newestFirst) < limit {
		page, err := fetcher.FetchPage(ctx, conversationID, cursor)
		if err != nil {
			return nil, err
		}
		reachedSince := false
		for _, msg := range page.Messages {
			if !since.IsZero() && msg.CreatedAt.Before(since) {
				reachedSince = true
				break
			}
			newestFirst = append(newestFirst, msg)
			if len(newestFirst) == limit {
				break
			}
		}
		if reachedSince || !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	messages := make([]types.Message, len(newestFirst))
	for i, msg := range newestFirst {
		messages[len(newestFirst)-1-i] = msg
	}
	return messages, nil
}

func printHistory(out io.Writer, groups []types.Group) {
	for _, group := range groups {
		switch group.Kind {
		case types.GroupDateSeparator:
			fmt.Fprintf(out, "--- %s ---\n", group.Date.Format("Mon Jan 2 2006"))
		case types.GroupMessage:
			msg := group.Message
			if group.FirstInCluster {
				fmt.Fprintf(out, "%s  %s\n", msg.SenderID, msg.CreatedAt.In(time.Local).Format("15:04"))
			}
			for _, line := range strings.Split(msg.Text, "\n") {
				fmt.Fprintf(out, "  %s\n", line)
			}
			if group.LastInCluster {
				fmt.Fprintln(out)
			}
		}
	}
}
