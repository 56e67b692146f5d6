package main

import (
	"context"
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		printFailure(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
