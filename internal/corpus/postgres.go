package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/searchfoundry/minidex/pkg/config"
	"github.com/searchfoundry/minidex/pkg/logger"
	"github.com/searchfoundry/minidex/pkg/postgres"
)

// PostgresSource reads a corpus from a table's JSON payload column in
// order-column order, so repeated builds see the same document sequence.
type PostgresSource struct {
	client *postgres.Client
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// NewPostgresSource creates a PostgresSource over an open client.
func NewPostgresSource(client *postgres.Client, cfg config.PostgresConfig) *PostgresSource {
	return &PostgresSource{
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("postgres-source").With("table", cfg.Table),
	}
}

// Read selects and decodes every document payload.
func (s *PostgresSource) Read(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s",
		pq.QuoteIdentifier(s.cfg.PayloadColumn),
		pq.QuoteIdentifier(s.cfg.Table),
		pq.QuoteIdentifier(s.cfg.OrderColumn),
	)
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning document row %d: %w", len(docs), err)
		}
		doc, err := DecodeDocument(payload)
		if err != nil {
			return nil, fmt.Errorf("document row %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	s.logger.Info("corpus read from postgres", "documents", len(docs))
	return docs, nil
}
