package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cctx := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	// Runs whether the command succeeded, failed, or was interrupted, so
	// reader markers never outlive the process that acquired them.
	cctx.shutdown()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
