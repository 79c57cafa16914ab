// Command bulkq runs SOQL queries as server-side bulk jobs and streams
// their CSV results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bulkq/cmd"
)

func main() {
	// A cancelled run aborts its job before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bulkq: %v\n", err)
		os.Exit(1)
	}
}
