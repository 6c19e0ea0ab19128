package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rdmrecords/internal/platform/httpserver"
	"rdmrecords/internal/platform/kafka"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var embedded bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, a, embedded)
			})
		},
	}
	cmd.Flags().BoolVar(&embedded, "embedded-workers", false, "also run the outbox relay and task consumer in this process")
	return cmd
}

func serve(ctx context.Context, a *app, embedded bool) error {
	if a.outboxMode() {
		if err := kafka.EnsureTopic(ctx, a.cfg.Kafka); err != nil {
			return err
		}
	}

	srv := httpserver.New(a.cfg.Server.Addr, newRouter(a))
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "http server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	switch {
	case a.dispatcher != nil:
		a.logger.InfoContext(ctx, "dispatching pid tasks in-process")
		g.Go(func() error { return a.dispatcher.Run(ctx) })
	case embedded:
		g.Go(func() error { return runRelay(ctx, a) })
		g.Go(func() error { return runWorker(ctx, a) })
	}

	return g.Wait()
}
