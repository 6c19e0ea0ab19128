// Command server runs the record service and its PID background processes.
//
//	server serve     HTTP API (plus in-process task dispatch without Kafka)
//	server worker    consume PID tasks from Kafka
//	server relay     move outbox rows to Kafka
//	server migrate   apply database migrations
//	server token     mint a development access token
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Research data records with persistent identifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newRelayCommand(),
		newMigrateCommand(),
		newTokenCommand(),
	)
	return root
}

// withApp loads config, builds the app and runs fn, logging a failure once.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	a, err := buildApp(ctx, cfg, log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		log.ErrorContext(ctx, "startup failed", "command", cmd.Name(), "error", err)
		return err
	}
	defer a.close()

	if err := fn(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "command failed", "command", cmd.Name(), "error", err)
		return err
	}
	log.InfoContext(ctx, "shutdown complete", "command", cmd.Name())
	return nil
}
