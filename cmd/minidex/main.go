// Command minidex builds a serialized inverted-index artifact from a corpus
// of JSON documents and an index schema. The artifact is consumed by a
// separate full-text search runtime; its format is an external contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchfoundry/minidex/internal/artifact"
	"github.com/searchfoundry/minidex/internal/builder"
	"github.com/searchfoundry/minidex/internal/corpus"
	"github.com/searchfoundry/minidex/internal/index/schema"
	"github.com/searchfoundry/minidex/pkg/config"
	"github.com/searchfoundry/minidex/pkg/errors"
	"github.com/searchfoundry/minidex/pkg/kafka"
	"github.com/searchfoundry/minidex/pkg/logger"
	"github.com/searchfoundry/minidex/pkg/metrics"
	"github.com/searchfoundry/minidex/pkg/postgres"
	"github.com/searchfoundry/minidex/pkg/redis"
	"github.com/searchfoundry/minidex/pkg/resilience"
	"github.com/searchfoundry/minidex/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to the app config file (YAML)")
	schemaPath := flag.String("schema", "", "path to the index schema file (JSON, required)")
	source := flag.String("source", "file", "document source: file, postgres, or kafka")
	inputPath := flag.String("input", "", "corpus file path (source=file)")
	outputPath := flag.String("output", artifact.StdoutPath, "artifact path, - for stdout")
	publish := flag.Bool("publish", false, "also publish the artifact to redis")
	flag.Parse()

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "minidex: -schema is required")
		flag.Usage()
		os.Exit(errors.ExitUsage)
	}
	if *source == "file" && *inputPath == "" {
		fmt.Fprintln(os.Stderr, "minidex: -input is required with -source=file")
		flag.Usage()
		os.Exit(errors.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(errors.ExitUsage)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	if err := run(ctx, cfg, m, *schemaPath, *source, *inputPath, *outputPath, *publish); err != nil {
		slog.Error("build failed", "error", err)
		os.Exit(errors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics,
	schemaPath, source, inputPath, outputPath string, publish bool) error {

	s, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}
	slog.Info("schema loaded", "fields", len(s.Fields), "store_fields", len(s.StoreFields))

	ctx, span := tracing.StartSpan(ctx, "build", fmt.Sprintf("%d", time.Now().UnixNano()))
	defer func() {
		span.End()
		span.Log()
	}()

	docs, err := readCorpus(ctx, cfg, source, inputPath)
	if err != nil {
		return err
	}
	slog.Info("corpus loaded", "source", source, "documents", len(docs))

	data, err := build(ctx, cfg, m, s, docs)
	if err != nil {
		return err
	}

	if err := artifact.WriteFile(outputPath, data); err != nil {
		return err
	}
	if publish {
		return publishArtifact(ctx, cfg, data)
	}
	return nil
}

func build(ctx context.Context, cfg *config.Config, m *metrics.Metrics,
	s *schema.Schema, docs []corpus.Document) ([]byte, error) {

	result, err := builder.New(s, cfg.Builder, m).Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	data, err := result.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}
	if m != nil {
		m.ArtifactBytes.Set(float64(len(data)))
	}
	slog.Info("index built",
		"documents", result.DocumentCount,
		"fields", len(result.FieldIDs),
		"artifact_bytes", len(data),
	)
	return data, nil
}

func readCorpus(ctx context.Context, cfg *config.Config, source, inputPath string) ([]corpus.Document, error) {
	switch source {
	case "file":
		return corpus.NewFileSource(inputPath).Read(ctx)
	case "postgres":
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func() error {
			var err error
			client, err = postgres.New(cfg.Postgres)
			return err
		})
		if err != nil {
			return nil, errors.Newf(errors.ErrSourceUnavailable, errors.ExitCorpus, "postgres: %v", err)
		}
		defer client.Close()
		return corpus.NewPostgresSource(client, cfg.Postgres).Read(ctx)
	case "kafka":
		reader := kafka.NewBatchReader(cfg.Kafka)
		defer reader.Close()
		docs, err := corpus.NewKafkaSource(reader).Read(ctx)
		if err != nil {
			return nil, errors.Newf(errors.ErrSourceUnavailable, errors.ExitCorpus, "kafka: %v", err)
		}
		return docs, nil
	default:
		return nil, errors.Newf(errors.ErrSourceUnavailable, errors.ExitUsage, "unknown source %q", source)
	}
}

func publishArtifact(ctx context.Context, cfg *config.Config, data []byte) error {
	var client *redis.Client
	err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{}, func() error {
		var err error
		client, err = redis.NewClient(cfg.Redis)
		return err
	})
	if err != nil {
		return errors.Newf(errors.ErrSinkUnavailable, errors.ExitTransfer, "redis: %v", err)
	}
	defer client.Close()
	return artifact.Publish(ctx, client, cfg.Redis.Key, cfg.Redis.TTL, data)
}
