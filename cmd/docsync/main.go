package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/docsync/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Cancel in-flight provider and store calls on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.NewRootCmd(fmt.Sprintf("%s (built %s)", version, buildTime))
	err := root.ExecuteContext(ctx)
	stop()

	var degraded *cli.DegradedError
	if err != nil && !errors.As(err, &degraded) {
		// stdout carries reports and the MCP protocol
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
