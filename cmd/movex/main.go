package main

import (
	"fmt"
	"os"

	"github.com/cubewin07/movie-explorer-sub000/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
