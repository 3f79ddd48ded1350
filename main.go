// Package main is the entry point for the mais-person command line client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sul-dlss/mais-person-client/cli"
	"github.com/sul-dlss/mais-person-client/logging"
)

func main() {
	// Format: 2026-01-06T14:05:52Z [mais-person] LEVEL message
	logging.Init(logging.DefaultSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewApp(), os.Args[1:])
	stop()
	os.Exit(code)
}
