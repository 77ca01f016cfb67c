// Package cmd contains the admin app commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Tooling for simulating and auditing a minichain ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command named on the command line.
func Execute(logger *zap.SugaredLogger) {
	log = logger

	// An interrupt stops a simulation between blocks.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		stop()
		os.Exit(1)
	}
}

// evHandler sends the ledger's events to the log.
func evHandler(v string, args ...any) {
	log.Debugf(v, args...)
}
