package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "movex"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "movex - terminal chat client",
		Long:          "movex is a terminal client for one-to-one and group conversations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to config file")
	cmd.PersistentFlags().String("user", "", "act as this user id (overrides user.id)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewInitCmd(),
		NewChatCmd(),
		NewPostCmd(),
		NewHistoryCmd(),
		NewLsCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
