package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// FileSource reads a corpus from a JSON file holding an array of document
// objects.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Read decodes every document in the file.
func (s *FileSource) Read(ctx context.Context) ([]Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file %s: %w", s.Path, err)
	}
	defer f.Close()

	docs, err := DecodeDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", s.Path, err)
	}
	slog.Debug("corpus file read", "path", s.Path, "documents", len(docs))
	return docs, nil
}
