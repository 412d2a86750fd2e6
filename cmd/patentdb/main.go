// patentdb loads parsed patent grants into a relational store and merges
// duplicate assignees, inventors, lawyers and locations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/patentdb/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(cli.ExitCode(err))
}

//Personal.AI order the ending
