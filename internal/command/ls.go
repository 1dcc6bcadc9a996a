package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// NewLsCmd creates the ls command.
func NewLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			convs, err := ctx.Conversations(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(convs)
			}

			out := cmd.OutOrStdout()
			if len(convs) == 0 {
				fmt.Fprintln(out, "No conversations")
				return nil
			}
			for _, conv := range convs {
				fmt.Fprintf(out, "#%s  %s  %s\n", conv.ID, memberList(conv.Participants), humanize.Time(conv.LastActivity))
			}
			return nil
		},
	}
	return cmd
}

func memberList(members []types.Participant) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		name := m.ID
		if m.Name != "" && m.Name != m.ID {
			name = fmt.Sprintf("%s (%s)", m.Name, m.ID)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
