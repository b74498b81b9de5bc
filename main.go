// ./main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/archlens/archlens/cmd"
	"github.com/archlens/archlens/internal/observability"
)

// main is the entry point for the archlens CLI.
func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// so in-flight scans shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
