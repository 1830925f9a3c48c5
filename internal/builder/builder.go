// Package builder runs the batch build pipeline: register every document,
// tokenize the configured fields, feed the tokens into the index, and
// serialize the artifact. A fatal error anywhere yields no artifact at all.
package builder

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchfoundry/minidex/internal/corpus"
	"github.com/searchfoundry/minidex/internal/index"
	"github.com/searchfoundry/minidex/internal/index/schema"
	"github.com/searchfoundry/minidex/internal/index/tokenizer"
	"github.com/searchfoundry/minidex/pkg/config"
	"github.com/searchfoundry/minidex/pkg/errors"
	"github.com/searchfoundry/minidex/pkg/logger"
	"github.com/searchfoundry/minidex/pkg/metrics"
	"github.com/searchfoundry/minidex/pkg/tracing"
)

// Builder turns a corpus into an index artifact according to one schema.
type Builder struct {
	schema  *schema.Schema
	cfg     config.BuilderConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Builder. metrics may be nil when no scrape server runs.
func New(s *schema.Schema, cfg config.BuilderConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		schema:  s,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("builder"),
	}
}

// Build processes the documents in order and returns the serialized
// artifact. Short IDs are assigned in a single sequential registration
// pass; tokenization fans out across workers; insertion into the postings
// store is single-threaded again, so the artifact is identical regardless
// of the concurrency setting.
func (b *Builder) Build(ctx context.Context, docs []corpus.Document) (*index.Artifact, error) {
	ix := index.New(b.schema)

	if err := b.registerPhase(ctx, ix, docs); err != nil {
		b.countBuild("error")
		return nil, err
	}

	tokens, err := b.tokenizePhase(ctx, docs)
	if err != nil {
		b.countBuild("error")
		return nil, err
	}

	b.insertPhase(ctx, ix, tokens)

	artifact, err := b.serializePhase(ctx, ix)
	if err != nil {
		b.countBuild("error")
		return nil, err
	}
	b.countBuild("success")
	return artifact, nil
}

// registerPhase assigns short IDs in document order and retains stored
// field values. A document without an identifier aborts the build.
func (b *Builder) registerPhase(ctx context.Context, ix *index.Index, docs []corpus.Document) error {
	_, span := tracing.StartChildSpan(ctx, "register")
	defer b.endPhase(span, "register")

	for i, doc := range docs {
		originalID, err := doc.Identifier()
		if err != nil {
			return errors.Newf(errors.ErrMissingIdentifier, errors.ExitBuild, "document %d", i)
		}
		shortID := ix.RegisterDocument(originalID)
		ix.StoreFields(shortID, doc.StoredValues(b.schema.StoreFields))
		if b.metrics != nil {
			b.metrics.DocumentsRegistered.Inc()
		}
	}
	span.SetAttr("documents", len(docs))
	return nil
}

// tokenizePhase tokenizes every configured field of every document.
// Results are collected per document slot, so the later insertion pass
// sees tokens in (document, field) order no matter how the workers
// interleave. Short IDs equal the document's position because the
// registration pass ran in the same order.
func (b *Builder) tokenizePhase(ctx context.Context, docs []corpus.Document) ([][]index.Token, error) {
	_, span := tracing.StartChildSpan(ctx, "tokenize")
	defer b.endPhase(span, "tokenize")

	workers := b.cfg.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]index.Token, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.tokenizeDocument(doc, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, tokens := range results {
		total += len(tokens)
	}
	span.SetAttr("tokens", total)
	return results, nil
}

// tokenizeDocument walks the schema's fields in field-ID order. A field
// with an unsupported value type is dropped from this document with a
// warning and counts as empty text.
func (b *Builder) tokenizeDocument(doc corpus.Document, shortID int) []index.Token {
	var tokens []index.Token
	for fieldID, name := range b.schema.Fields {
		text, err := doc.FieldText(name)
		if err != nil {
			b.logger.Warn("skipping field with unsupported value type",
				"document", shortID,
				"field", name,
				"error", err,
			)
			if b.metrics != nil {
				b.metrics.FieldsSkipped.WithLabelValues("unsupported_type").Inc()
			}
			continue
		}
		terms := tokenizer.Tokenize(text)
		for _, term := range terms {
			tokens = append(tokens, index.Token{Term: term, FieldID: fieldID, DocID: shortID})
		}
		if b.metrics != nil && len(terms) > 0 {
			b.metrics.TokensIndexed.WithLabelValues(name).Add(float64(len(terms)))
		}
	}
	return tokens
}

// insertPhase feeds all tokens into the index from a single goroutine; the
// postings store is not designed for concurrent mutation.
func (b *Builder) insertPhase(ctx context.Context, ix *index.Index, tokens [][]index.Token) {
	_, span := tracing.StartChildSpan(ctx, "insert")
	defer b.endPhase(span, "insert")

	for _, docTokens := range tokens {
		ix.AddTokens(docTokens)
	}
	span.SetAttr("distinct_terms", ix.TermCount())
	if b.metrics != nil {
		b.metrics.DistinctTerms.Set(float64(ix.TermCount()))
	}
}

func (b *Builder) serializePhase(ctx context.Context, ix *index.Index) (*index.Artifact, error) {
	_, span := tracing.StartChildSpan(ctx, "serialize")
	defer b.endPhase(span, "serialize")

	artifact, err := index.Serialize(ix)
	if err != nil {
		return nil, err
	}
	span.SetAttr("documents", artifact.DocumentCount)
	return artifact, nil
}

// countBuild records the build outcome, success or error.
func (b *Builder) countBuild(status string) {
	if b.metrics != nil {
		b.metrics.BuildsTotal.WithLabelValues(status).Inc()
	}
}

func (b *Builder) endPhase(span *tracing.Span, phase string) {
	span.End()
	if b.metrics != nil {
		b.metrics.PhaseDuration.WithLabelValues(phase).Observe(span.Duration.Seconds())
	}
	b.logger.Debug("build phase finished", "phase", phase, "duration", span.Duration.Round(time.Microsecond))
}
