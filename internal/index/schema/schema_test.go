package schema

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/searchfoundry/minidex/pkg/errors"
)

func TestParseAssignsPositionalFieldIDs(t *testing.T) {
	s, err := Parse([]byte(`{"fields": ["title", "body", "author"], "storeFields": ["title"]}`))
	if err != nil {
		t.Fatalf("Parse returned %v", err)
	}

	want := map[string]int{"title": 0, "body": 1, "author": 2}
	if got := s.FieldIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("FieldIDs() = %v, want %v", got, want)
	}
	if !s.Stored("title") || s.Stored("body") {
		t.Errorf("Stored: title=%v body=%v, want true false", s.Stored("title"), s.Stored("body"))
	}
}

func TestParseAcceptsStoreFieldsAlias(t *testing.T) {
	s, err := Parse([]byte(`{"fields": ["a"], "store_fields": ["a"]}`))
	if err != nil {
		t.Fatalf("Parse returned %v", err)
	}
	if !reflect.DeepEqual(s.StoreFields, []string{"a"}) {
		t.Errorf("StoreFields = %v, want [a]", s.StoreFields)
	}
}

func TestParseRejectsBadSchemas(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"no fields", `{"fields": [], "storeFields": []}`},
		{"missing fields key", `{"storeFields": []}`},
		{"duplicate field", `{"fields": ["a", "b", "a"]}`},
		{"empty field name", `{"fields": ["a", ""]}`},
		{"not json", `fields: [a]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if !errors.Is(err, apperrors.ErrInvalidSchema) {
				t.Errorf("Parse(%s) error = %v, want ErrInvalidSchema", tc.data, err)
			}
		})
	}
}

func TestFieldOrderIsLoadBearing(t *testing.T) {
	a, _ := Parse([]byte(`{"fields": ["x", "y"]}`))
	b, _ := Parse([]byte(`{"fields": ["y", "x"]}`))
	if a.FieldIDs()["x"] != 0 || b.FieldIDs()["x"] != 1 {
		t.Errorf("field IDs do not follow declaration order: %v vs %v", a.FieldIDs(), b.FieldIDs())
	}
}
