package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cubewin07/movie-explorer-sub000/internal/config"
	"github.com/cubewin07/movie-explorer-sub000/internal/db"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [conversation]",
		Short: "Create the local backend and optionally a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if ctx.Config.Backend.Mode != config.ModeLocal {
				return writeCommandError(cmd, fmt.Errorf("init only applies to the local backend"))
			}
			conn, err := ctx.openLocalDB(true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized local backend at %s\n", ctx.Config.Local.DBPath)

			if len(args) == 0 {
				return nil
			}
			if err := ctx.requireUser(); err != nil {
				return writeCommandError(cmd, err)
			}

			memberFlags, _ := cmd.Flags().GetStringArray("member")
			members := []types.Participant{{ID: ctx.Config.User.ID, Name: ctx.Config.User.Name}}
			for _, value := range memberFlags {
				member, err := parseMember(value)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				members = append(members, member)
			}

			if err := db.EnsureChat(cmd.Context(), conn, args[0], members...); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(out, "Conversation #%s: %s\n", args[0], memberList(members))
			return nil
		},
	}

	cmd.Flags().StringArray("member", nil, "add a member as id or id=Display Name (repeatable)")
	return cmd
}

func parseMember(value string) (types.Participant, error) {
	id, name, _ := strings.Cut(value, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Participant{}, fmt.Errorf("invalid member %q: id is required", value)
	}
	return types.Participant{ID: id, Name: strings.TrimSpace(name)}, nil
}
