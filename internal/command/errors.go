package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cubewin07/movie-explorer-sub000/internal/db"
	"github.com/cubewin07/movie-explorer-sub000/internal/transport"
)

// writeCommandError prints err with a hint where one helps, and returns it.
func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	var apiErr *transport.APIError
	switch {
	case errors.Is(err, db.ErrUnknownChat), errors.Is(err, transport.ErrNotFound):
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: list conversations with: %s ls\n", AppName)
	case errors.Is(err, errNotInitialized):
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: create the local backend with: %s init\n", AppName)
	case errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check backend.token in your config")
	}
	return err
}
