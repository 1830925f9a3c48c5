// Package corpus defines the document model consumed by the build pipeline
// and the sources that materialize a corpus from a JSON file, a postgres
// table, or a kafka topic.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/searchfoundry/minidex/pkg/errors"
)

// IdentifierField is the document field holding the original identifier.
const IdentifierField = "id"

// Document is one input document: a mapping from field name to a JSON
// value. Numbers are decoded as json.Number so numeric identifiers and
// field values survive serialization verbatim.
type Document map[string]any

// Source materializes a corpus as fully decoded in-memory documents. The
// build core performs no I/O of its own.
type Source interface {
	Read(ctx context.Context) ([]Document, error)
}

// Identifier returns the document's original identifier. A document
// without the id field aborts the whole build.
func (d Document) Identifier() (any, error) {
	id, ok := d[IdentifierField]
	if !ok {
		return nil, errors.New(errors.ErrMissingIdentifier, errors.ExitBuild, "document has no id field")
	}
	return id, nil
}

// FieldText returns the indexable text of a field. Strings pass through,
// numbers use their literal form, null and absent fields are empty text.
// Any other value type returns ErrUnsupportedFieldType; the caller skips
// the field with a warning and the build continues.
func (d Document) FieldText(name string) (string, error) {
	value, ok := d[name]
	if !ok {
		return "", nil
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return "", errors.Newf(errors.ErrUnsupportedFieldType, errors.ExitBuild,
			"field %q has type %T", name, value)
	}
}

// StoredValues returns the subset of the document named by fields,
// retained verbatim for the artifact's storedFields section.
func (d Document) StoredValues(fields []string) map[string]any {
	var values map[string]any
	for _, name := range fields {
		if v, ok := d[name]; ok {
			if values == nil {
				values = make(map[string]any)
			}
			values[name] = v
		}
	}
	return values
}

// DecodeDocuments reads a JSON array of documents.
func DecodeDocuments(r io.Reader) ([]Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decoding document array: %w", err)
	}
	return docs, nil
}

// DecodeDocument reads a single JSON document object.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}
