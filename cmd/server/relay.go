package main

import (
	"context"

	"github.com/spf13/cobra"

	"rdmrecords/internal/pids/tasks"
	"rdmrecords/internal/platform/kafka"
	"rdmrecords/internal/platform/kafka/producer"
)

func newRelayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish committed PID tasks from the outbox to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireOutbox("relay"); err != nil {
					return err
				}
				if err := kafka.EnsureTopic(ctx, a.cfg.Kafka); err != nil {
					return err
				}
				return runRelay(ctx, a)
			})
		},
	}
}

func runRelay(ctx context.Context, a *app) error {
	p, err := producer.New(ctx, a.cfg.Kafka.Brokers, producer.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer p.Close()

	relay := tasks.NewRelay(a.outbox, p, a.runner, a.cfg.Kafka.Topic, a.cfg.Outbox,
		tasks.WithRelayLogger(a.logger),
		tasks.WithRelayMetrics(a.pidMetrics),
	)
	a.logger.InfoContext(ctx, "outbox relay started", "topic", a.cfg.Kafka.Topic)
	return relay.Run(ctx)
}
