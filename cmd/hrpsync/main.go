package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hrp_projects/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx, cli.NewLogger(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
