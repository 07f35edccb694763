// Command promptx-bridge serves PromptX roles over HTTP and drives the
// PromptX role tools from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	if err := newRootCmd(opts).ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err, opts.output == outputJSON)
		stop()
		os.Exit(1)
	}
}
