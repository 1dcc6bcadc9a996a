package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// NewPostCmd creates the post command.
func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <conversation> <message...>",
		Short: "Post a message without opening chat mode",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			sender, _ := cmd.Flags().GetString("as")
			if sender == "" {
				if err := ctx.requireUser(); err != nil {
					return writeCommandError(cmd, err)
				}
				sender = ctx.Config.User.ID
			}

			text := core.NormalizeText(strings.Join(args[1:], " "))
			if err := core.ValidateText(text, ctx.Config.Chat.MaxLength); err != nil {
				return writeCommandError(cmd, err)
			}

			if _, err := ctx.OpenBackend(); err != nil {
				return writeCommandError(cmd, err)
			}
			conversationID := args[0]

			if ctx.remote != nil {
				if sender != ctx.Config.User.ID {
					return writeCommandError(cmd, fmt.Errorf("--as is only supported with the local backend"))
				}
				if err := ctx.remote.SendMessage(cmd.Context(), conversationID, text, ""); err != nil {
					return writeCommandError(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent to #%s\n", conversationID)
				return nil
			}

			msg, err := ctx.local.Post(cmd.Context(), conversationID, sender, text, "")
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatPosted(msg))
			return nil
		},
	}

	cmd.Flags().String("as", "", "post as this user (local backend)")
	return cmd
}

func formatPosted(msg types.Message) string {
	return fmt.Sprintf("[%s] %s: %s", core.ShortID(msg.ID, 8), msg.SenderID, msg.Text)
}
