// Package main is the entry point for the par CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runoshun/par/internal/app"
	"github.com/runoshun/par/internal/cli"
	"github.com/runoshun/par/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(domain.ExitCode(err))
}

func run(ctx context.Context, args []string) error {
	// The container is built after global flags are parsed.
	rootCmd := cli.NewRootCommand(app.New, version)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
