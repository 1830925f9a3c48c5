// Package schema defines the index schema: which document fields are
// indexed and which are stored verbatim. The schema file is part of the
// external contract shared with the search runtime.
package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/searchfoundry/minidex/pkg/errors"
)

// Schema lists the indexed fields, in the order that assigns their field
// IDs, and the fields whose values are retained for display.
type Schema struct {
	Fields      []string
	StoreFields []string
}

type schemaJSON struct {
	Fields       []string `json:"fields"`
	StoreFields  []string `json:"storeFields"`
	StoreFields2 []string `json:"store_fields"`
}

// UnmarshalJSON accepts both "storeFields" and its "store_fields" alias.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Fields = raw.Fields
	s.StoreFields = raw.StoreFields
	if s.StoreFields == nil {
		s.StoreFields = raw.StoreFields2
	}
	return nil
}

// MarshalJSON writes the canonical spelling.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaJSON{
		Fields:      s.Fields,
		StoreFields: s.StoreFields,
	})
}

// Validate checks that the schema can produce a usable field-ID table.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.Newf(errors.ErrInvalidSchema, errors.ExitSchema, "schema has no fields to index")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, name := range s.Fields {
		if name == "" {
			return errors.Newf(errors.ErrInvalidSchema, errors.ExitSchema, "schema contains an empty field name")
		}
		if _, dup := seen[name]; dup {
			return errors.Newf(errors.ErrInvalidSchema, errors.ExitSchema, "duplicate field %q in schema", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// FieldIDs returns the positional field-ID table: each indexed field maps
// to its 0-based position in Fields. The ordering is load-bearing; the
// search runtime resolves field IDs the same way.
func (s *Schema) FieldIDs() map[string]int {
	ids := make(map[string]int, len(s.Fields))
	for i, name := range s.Fields {
		ids[name] = i
	}
	return ids
}

// Stored reports whether the named field's value should be retained
// verbatim in the artifact.
func (s *Schema) Stored(name string) bool {
	for _, f := range s.StoreFields {
		if f == name {
			return true
		}
	}
	return false
}

// Load reads and validates a schema JSON file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Newf(errors.ErrInvalidSchema, errors.ExitSchema, "parsing schema: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
