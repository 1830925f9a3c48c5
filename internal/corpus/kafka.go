package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/searchfoundry/minidex/pkg/kafka"
	"github.com/searchfoundry/minidex/pkg/logger"
)

// KafkaSource rebuilds a corpus from an ingest log: it drains a document
// topic up to its current end offset, one JSON document per message, in
// offset order.
type KafkaSource struct {
	reader *kafka.BatchReader
	logger *slog.Logger
}

// NewKafkaSource creates a KafkaSource over a positioned batch reader.
func NewKafkaSource(reader *kafka.BatchReader) *KafkaSource {
	return &KafkaSource{
		reader: reader,
		logger: logger.WithComponent("kafka-source"),
	}
}

// Read drains the topic and decodes each message into a Document.
func (s *KafkaSource) Read(ctx context.Context) ([]Document, error) {
	var docs []Document
	count, err := s.reader.Drain(ctx, func(ctx context.Context, key, value []byte) error {
		doc, err := DecodeDocument(value)
		if err != nil {
			return fmt.Errorf("document %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus read from kafka", "documents", count)
	return docs, nil
}
