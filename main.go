// Command qwees is the module root entry point so that
// "go install github.com/timqwees/qwees@latest" yields the same binary as
// ./cmd/qwees.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/timqwees/qwees/internal/cli/app"
)

var version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(version).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
