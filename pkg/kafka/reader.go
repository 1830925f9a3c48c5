// Package kafka provides a bounded batch reader backed by segmentio/kafka-go.
// Unlike a streaming consumer it drains a topic partition from its first
// offset up to the end offset observed at connect time, which is what a
// one-shot rebuild from an ingest log needs.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/searchfoundry/minidex/pkg/config"
	"github.com/searchfoundry/minidex/pkg/logger"
)

// MessageHandler is a callback invoked for each drained message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// BatchReader reads every message currently in a topic partition and then
// stops.
type BatchReader struct {
	reader       *kafka.Reader
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewBatchReader creates a BatchReader positioned at the first offset of the
// configured partition.
func NewBatchReader(cfg config.KafkaConfig) *BatchReader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.DocumentTopic,
		Partition:   cfg.Partition,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &BatchReader{
		reader:       r,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger.WithComponent("kafka-batch-reader").With("topic", cfg.DocumentTopic),
	}
}

// Drain fetches every message up to the partition's current end offset and
// passes each to handle. A handler error stops the drain; a partially read
// corpus must never reach the index builder.
func (r *BatchReader) Drain(ctx context.Context, handle MessageHandler) (int, error) {
	lag, err := r.reader.ReadLag(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading topic end offset: %w", err)
	}
	r.logger.Info("draining topic", "pending_messages", lag)

	count := 0
	for int64(count) < lag {
		msg, err := r.fetchOne(ctx)
		if err != nil {
			return count, fmt.Errorf("fetching message %d of %d: %w", count+1, lag, err)
		}
		r.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			return count, fmt.Errorf("handling message at offset %d: %w", msg.Offset, err)
		}
		count++
	}
	r.logger.Info("topic drained", "messages", count)
	return count, nil
}

// fetchOne reads the next message, bounded by the configured fetch timeout
// so a drain against a stalled broker fails instead of hanging.
func (r *BatchReader) fetchOne(ctx context.Context) (kafka.Message, error) {
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}
	return r.reader.FetchMessage(ctx)
}

// Close closes the underlying Kafka reader.
func (r *BatchReader) Close() error {
	return r.reader.Close()
}
