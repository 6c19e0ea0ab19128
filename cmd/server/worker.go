package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"rdmrecords/internal/pids/tasks"
	"rdmrecords/internal/platform/kafka"
	"rdmrecords/internal/platform/kafka/consumer"
)

const dedupWindow = 15 * time.Minute

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Register and update PIDs from the task topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireOutbox("worker"); err != nil {
					return err
				}
				if err := kafka.EnsureTopic(ctx, a.cfg.Kafka); err != nil {
					return err
				}
				return runWorker(ctx, a)
			})
		},
	}
}

func runWorker(ctx context.Context, a *app) error {
	handler := tasks.NewMessageHandler(a.taskHandler,
		tasks.WithDedupWindow(dedupWindow),
		tasks.WithMessageLogger(a.logger),
		tasks.WithMessageMetrics(a.pidMetrics),
	)
	c, err := consumer.New(a.cfg.Kafka.Brokers, a.cfg.Kafka.ConsumerGroup, []string{a.cfg.Kafka.Topic}, handler,
		consumer.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	a.logger.InfoContext(ctx, "pid task worker started",
		"topic", a.cfg.Kafka.Topic,
		"group", a.cfg.Kafka.ConsumerGroup,
	)
	return c.Run(ctx)
}
