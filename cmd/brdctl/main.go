package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Learning: Ctrl-C cancels the context; a running reprocess stops
	// between documents instead of dying mid-write
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
