// Command letor splits, folds, converts and trains on LETOR ranking datasets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gcbaptista/go-letor/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		ux.Print(os.Stderr, ux.Error(err))
		stop()
		os.Exit(1)
	}
}
