// Package artifact writes the serialized index where the search runtime
// picks it up: a file (or stdout), optionally mirrored to a redis key.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/searchfoundry/minidex/pkg/errors"
	"github.com/searchfoundry/minidex/pkg/redis"
)

// StdoutPath selects stdout instead of a file.
const StdoutPath = "-"

// WriteFile writes the artifact atomically: a temp file in the target
// directory first, renamed into place on success, so a crashed build never
// leaves a truncated artifact behind.
func WriteFile(path string, data []byte) error {
	if path == StdoutPath {
		if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("writing artifact to stdout: %w", err)
		}
		return nil
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming artifact into place: %w", err)
	}
	slog.Info("artifact written", "path", path, "bytes", len(data))
	return nil
}

// Publish stores the artifact under a redis key with the given TTL so the
// search runtime can load it without touching the filesystem.
func Publish(ctx context.Context, client *redis.Client, key string, ttl time.Duration, data []byte) error {
	if err := client.Set(ctx, key, data, ttl); err != nil {
		return errors.Newf(errors.ErrSinkUnavailable, errors.ExitTransfer,
			"publishing artifact to redis key %q: %v", key, err)
	}
	slog.Info("artifact published", "key", key, "bytes", len(data), "ttl", ttl)
	return nil
}
