package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imfpack/internal/faults"
)

const (
	exitFailure = 1
	// exitFatal marks errors no retry of the same build can fix: bad
	// configuration or a binary without the digest algorithm.
	exitFatal = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case faults.Fatal(err):
		return exitFatal
	default:
		return exitFailure
	}
}
