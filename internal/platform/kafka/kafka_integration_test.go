//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/kafka"
	"rdmrecords/internal/platform/kafka/consumer"
	"rdmrecords/internal/platform/kafka/producer"
	"rdmrecords/internal/platform/logger"
	"rdmrecords/pkg/testutil/containers"
)

func TestProduceConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.KafkaConfig{
		Brokers:           broker.Brokers,
		Topic:             "pid-tasks-" + uuid.NewString(),
		Partitions:        1,
		ReplicationFactor: 1,
	}
	require.NoError(t, kafka.EnsureTopic(ctx, cfg))
	require.NoError(t, kafka.EnsureTopic(ctx, cfg), "existing topic is not an error")

	prod, err := producer.New(ctx, cfg.Brokers, producer.WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer prod.Close()
	require.NoError(t, prod.Publish(ctx,
		producer.Message{Topic: cfg.Topic, Key: []byte("record:r1:doi"), Value: []byte("first")},
		producer.Message{Topic: cfg.Topic, Key: []byte("record:r1:doi"), Value: []byte("second"), Headers: map[string]string{"task_id": "t2"}},
	))

	received := make(chan *consumer.Message, 2)
	handler := consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		received <- msg
		return nil
	})
	cons, err := consumer.New(cfg.Brokers, "group-"+uuid.NewString(), []string{cfg.Topic}, handler,
		consumer.WithLogger(logger.Discard()))
	require.NoError(t, err)
	defer cons.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = cons.Run(runCtx) }()

	var got []*consumer.Message
	for len(got) < 2 {
		select {
		case msg := <-received:
			got = append(got, msg)
		case <-ctx.Done():
			t.Fatal("timed out waiting for messages")
		}
	}
	require.Equal(t, "first", string(got[0].Value), "same key keeps order")
	require.Equal(t, "second", string(got[1].Value))
	require.Equal(t, "t2", got[1].Headers["task_id"])
}
