package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/artpar/courseware/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand(fmt.Sprintf("%s (%s, %s)", version, commit, date))
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
