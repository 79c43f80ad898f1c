package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var errorColor = color.New(color.FgRed, color.Bold)
