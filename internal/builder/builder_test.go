package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/searchfoundry/minidex/internal/corpus"
	"github.com/searchfoundry/minidex/internal/index/schema"
	"github.com/searchfoundry/minidex/pkg/config"
	apperrors "github.com/searchfoundry/minidex/pkg/errors"
	"github.com/searchfoundry/minidex/pkg/metrics"
)

func testSchema(t *testing.T, data string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(data))
	if err != nil {
		t.Fatalf("parsing schema: %v", err)
	}
	return s
}

func decodeDocs(t *testing.T, data string) []corpus.Document {
	t.Helper()
	docs, err := corpus.DecodeDocuments(strings.NewReader(data))
	if err != nil {
		t.Fatalf("decoding corpus: %v", err)
	}
	return docs
}

func TestBuildTwoDocumentCorpus(t *testing.T) {
	s := testSchema(t, `{"fields": ["a", "b"]}`)
	docs := decodeDocs(t, `[{"id":"bar","a":"1","b":"123"},{"id":"foo","a":"a","b":"b"}]`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}

	if artifact.DocumentCount != 2 || artifact.NextID != 2 {
		t.Errorf("DocumentCount/NextID = %d/%d, want 2/2", artifact.DocumentCount, artifact.NextID)
	}
	if want := map[string]int{"a": 0, "b": 1}; !reflect.DeepEqual(artifact.FieldIDs, want) {
		t.Errorf("FieldIDs = %v, want %v", artifact.FieldIDs, want)
	}
	if want := map[string]any{"0": "bar", "1": "foo"}; !reflect.DeepEqual(artifact.DocumentIDs, want) {
		t.Errorf("DocumentIDs = %v, want %v", artifact.DocumentIDs, want)
	}
	if want := map[string]float64{"0": 1, "1": 1}; !reflect.DeepEqual(artifact.AverageFieldLength, want) {
		t.Errorf("AverageFieldLength = %v, want %v", artifact.AverageFieldLength, want)
	}

	// "1" is a terminal node sharing a prefix with the deeper "23".
	one, ok := artifact.Index.Tree["1"].(map[string]any)
	if !ok {
		t.Fatalf("_tree missing node %q: %v", "1", artifact.Index.Tree)
	}
	wantOne := map[string]any{"0": map[string]any{"df": 1, "ds": map[string]int{"0": 1}}}
	if !reflect.DeepEqual(one[""], wantOne) {
		t.Errorf("terminal entry at 1 = %v, want %v", one[""], wantOne)
	}
	deeper, ok := one["23"].(map[string]any)
	if !ok {
		t.Fatalf("node %q missing child %q", "1", "23")
	}
	wantDeeper := map[string]any{"1": map[string]any{"df": 1, "ds": map[string]int{"0": 1}}}
	if !reflect.DeepEqual(deeper[""], wantDeeper) {
		t.Errorf("terminal entry at 1/23 = %v, want %v", deeper[""], wantDeeper)
	}
}

// A single document without an id aborts the whole build: all-or-nothing.
func TestBuildAbortsOnMissingIdentifier(t *testing.T) {
	s := testSchema(t, `{"fields": ["a"]}`)
	docs := decodeDocs(t, `[{"id":"ok","a":"x"},{"a":"no id"},{"id":"also-ok","a":"y"}]`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), docs)
	if !errors.Is(err, apperrors.ErrMissingIdentifier) {
		t.Errorf("Build error = %v, want ErrMissingIdentifier", err)
	}
	if artifact != nil {
		t.Errorf("Build returned a partial artifact: %v", artifact)
	}
}

// A configured field with a non-scalar value is dropped from that document
// with a warning; the rest of the document still gets indexed.
func TestBuildSkipsUnsupportedFieldValues(t *testing.T) {
	s := testSchema(t, `{"fields": ["a", "b"]}`)
	docs := decodeDocs(t, `[{"id":"d0","a":["not","scalar"],"b":"keep"}]`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if artifact.DocumentCount != 1 {
		t.Errorf("DocumentCount = %d, want 1", artifact.DocumentCount)
	}
	if _, ok := artifact.Index.Tree["keep"]; !ok {
		t.Errorf("term from the supported field is missing: %v", artifact.Index.Tree)
	}
	if len(artifact.Index.Tree) != 1 {
		t.Errorf("_tree = %v, want only the term from field b", artifact.Index.Tree)
	}
	if want := map[string]float64{"1": 1}; !reflect.DeepEqual(artifact.AverageFieldLength, want) {
		t.Errorf("AverageFieldLength = %v, want %v", artifact.AverageFieldLength, want)
	}
}

func TestBuildTokenizesNumbersAndSkipsNull(t *testing.T) {
	s := testSchema(t, `{"fields": ["price", "note"]}`)
	docs := decodeDocs(t, `[{"id":1,"price":42,"note":null}]`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if _, ok := artifact.Index.Tree["42"]; !ok {
		t.Errorf("number literal was not indexed: %v", artifact.Index.Tree)
	}
	if got := artifact.DocumentIDs["0"]; got != json.Number("1") {
		t.Errorf("DocumentIDs[0] = %#v, want json.Number(1)", got)
	}
}

func TestBuildRetainsStoredFields(t *testing.T) {
	s := testSchema(t, `{"fields": ["body"], "storeFields": ["title"]}`)
	docs := decodeDocs(t, `[{"id":"d0","title":"Moby Dick","body":"call me ishmael"}]`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	want := map[string]map[string]any{"0": {"title": "Moby Dick"}}
	if !reflect.DeepEqual(artifact.StoredFields, want) {
		t.Errorf("StoredFields = %v, want %v", artifact.StoredFields, want)
	}
	// Stored fields are display data, not search data.
	if _, ok := artifact.Index.Tree["moby"]; ok {
		t.Errorf("stored-only field leaked into the postings store")
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	s := testSchema(t, `{"fields": ["a"]}`)

	artifact, err := New(s, config.BuilderConfig{}, nil).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if artifact.DocumentCount != 0 || len(artifact.DocumentIDs) != 0 {
		t.Errorf("empty corpus: count=%d ids=%v", artifact.DocumentCount, artifact.DocumentIDs)
	}
	if len(artifact.Index.Tree) != 0 {
		t.Errorf("_tree = %v, want empty", artifact.Index.Tree)
	}
}

// Every build increments the outcome counter exactly once, under the
// status matching how it ended.
func TestBuildCountsOutcome(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := testSchema(t, `{"fields": ["a"]}`)
	b := New(s, config.BuilderConfig{}, m)

	if _, err := b.Build(context.Background(), decodeDocs(t, `[{"id":"d0","a":"x"}]`)); err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("builds_total{status=success} = %v, want 1", got)
	}

	if _, err := b.Build(context.Background(), decodeDocs(t, `[{"a":"no id"}]`)); err == nil {
		t.Fatal("Build succeeded on a document without an id")
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("builds_total{status=error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("builds_total{status=success} after failed build = %v, want 1", got)
	}
}

// Short-ID assignment is a sequential pass, so the artifact must not
// depend on how tokenization is spread over workers.
func TestBuildDeterministicAcrossConcurrency(t *testing.T) {
	s := testSchema(t, `{"fields": ["title", "body"]}`)
	docs := decodeDocs(t, `[
		{"id":"d0","title":"the quick brown fox","body":"jumps over the lazy dog"},
		{"id":"d1","title":"pack my box","body":"with five dozen liquor jugs"},
		{"id":"d2","title":"the quick onyx goblin","body":"jumps over the lazy dwarf"}
	]`)

	var reference []byte
	for _, workers := range []int{1, 2, 8} {
		artifact, err := New(s, config.BuilderConfig{Concurrency: workers}, nil).Build(context.Background(), docs)
		if err != nil {
			t.Fatalf("Build(concurrency=%d) returned %v", workers, err)
		}
		data, err := artifact.Encode()
		if err != nil {
			t.Fatalf("Encode returned %v", err)
		}
		if reference == nil {
			reference = data
			continue
		}
		if !bytes.Equal(reference, data) {
			t.Errorf("concurrency=%d changed the artifact:\n%s\n%s", workers, reference, data)
		}
	}
}
