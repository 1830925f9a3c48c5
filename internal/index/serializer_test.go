package index

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/searchfoundry/minidex/internal/index/trie"
	apperrors "github.com/searchfoundry/minidex/pkg/errors"
)

// buildFixture indexes the two-document corpus used across the serializer
// tests: fields a and b, docs {"id":"bar","a":"1","b":"123"} and
// {"id":"foo","a":"a","b":"b"}.
func buildFixture(t *testing.T) *Index {
	t.Helper()
	ix := New(testSchema(t, `{"fields": ["a", "b"]}`))
	ix.RegisterDocument("bar")
	ix.RegisterDocument("foo")
	ix.AddTokens([]Token{
		{Term: "1", FieldID: 0, DocID: 0},
		{Term: "123", FieldID: 1, DocID: 0},
		{Term: "a", FieldID: 0, DocID: 1},
		{Term: "b", FieldID: 1, DocID: 1},
	})
	return ix
}

func TestSerializeArtifactBytes(t *testing.T) {
	artifact, err := Serialize(buildFixture(t))
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	data, err := artifact.Encode()
	if err != nil {
		t.Fatalf("Encode returned %v", err)
	}

	want := `{"documentCount":2,"nextId":2,` +
		`"documentIds":{"0":"bar","1":"foo"},` +
		`"fieldIds":{"a":0,"b":1},` +
		`"averageFieldLength":{"0":1,"1":1},` +
		`"fieldLength":{"0":{"0":1,"1":1},"1":{"0":1,"1":1}},` +
		`"index":{"_prefix":"","_tree":{` +
		`"1":{"":{"0":{"df":1,"ds":{"0":1}}},"23":{"":{"1":{"df":1,"ds":{"0":1}}}}},` +
		`"a":{"":{"0":{"df":1,"ds":{"1":1}}}},` +
		`"b":{"":{"1":{"df":1,"ds":{"1":1}}}}}},` +
		`"storedFields":{}}`
	if string(data) != want {
		t.Errorf("artifact JSON mismatch:\ngot  %s\nwant %s", data, want)
	}
}

// A term that is a strict prefix of another appears as an internal node
// carrying both a terminal entry and a child fragment.
func TestSerializePrefixSharing(t *testing.T) {
	artifact, err := Serialize(buildFixture(t))
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	tree := artifact.Index.Tree

	one, ok := tree["1"].(map[string]any)
	if !ok {
		t.Fatalf("_tree has no node for %q: %v", "1", tree)
	}
	if _, terminal := one[""]; !terminal {
		t.Errorf("node %q should be word-terminal", "1")
	}
	deeper, ok := one["23"].(map[string]any)
	if !ok {
		t.Fatalf("node %q has no child fragment %q", "1", "23")
	}
	wantDeeper := map[string]any{
		"1": map[string]any{"df": 1, "ds": map[string]int{"0": 1}},
	}
	if !reflect.DeepEqual(deeper[""], wantDeeper) {
		t.Errorf("terminal entry at 1/23 = %v, want %v", deeper[""], wantDeeper)
	}
}

// A term occurring in more than one field keeps one entry per field in
// its terminal object; nothing is overwritten.
func TestSerializeSharedTermAcrossFields(t *testing.T) {
	ix := New(testSchema(t, `{"fields": ["a", "b"]}`))
	ix.RegisterDocument("doc")
	ix.AddTokens([]Token{
		{Term: "x", FieldID: 0, DocID: 0},
		{Term: "x", FieldID: 1, DocID: 0},
		{Term: "x", FieldID: 1, DocID: 0},
	})

	artifact, err := Serialize(ix)
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	entry := lookupTerminal(t, artifact.Index.Tree, "x")
	want := map[string]any{
		"0": map[string]any{"df": 1, "ds": map[string]int{"0": 1}},
		"1": map[string]any{"df": 1, "ds": map[string]int{"0": 2}},
	}
	if !reflect.DeepEqual(entry, want) {
		t.Errorf("shared-term entry = %v, want %v", entry, want)
	}
}

func TestSerializeCountsDistinctDocuments(t *testing.T) {
	ix := New(testSchema(t, `{"fields": ["a"]}`))
	ix.RegisterDocument("d0")
	ix.RegisterDocument("d1")
	ix.RegisterDocument("d2")
	ix.AddTokens([]Token{
		{Term: "common", FieldID: 0, DocID: 0},
		{Term: "common", FieldID: 0, DocID: 0},
		{Term: "common", FieldID: 0, DocID: 1},
		{Term: "common", FieldID: 0, DocID: 2},
	})

	artifact, err := Serialize(ix)
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	entry := lookupTerminal(t, artifact.Index.Tree, "common")
	want := map[string]any{
		"0": map[string]any{"df": 3, "ds": map[string]int{"0": 2, "1": 1, "2": 1}},
	}
	if !reflect.DeepEqual(entry, want) {
		t.Errorf("entry = %v, want %v", entry, want)
	}
}

func TestSerializeEmptyCorpus(t *testing.T) {
	ix := New(testSchema(t, `{"fields": ["a", "b"]}`))
	artifact, err := Serialize(ix)
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	data, err := artifact.Encode()
	if err != nil {
		t.Fatalf("Encode returned %v", err)
	}

	want := `{"documentCount":0,"nextId":0,"documentIds":{},"fieldIds":{"a":0,"b":1},` +
		`"averageFieldLength":{},"fieldLength":{},` +
		`"index":{"_prefix":"","_tree":{}},"storedFields":{}}`
	if string(data) != want {
		t.Errorf("empty artifact mismatch:\ngot  %s\nwant %s", data, want)
	}
}

func TestSerializeStoredFields(t *testing.T) {
	ix := New(testSchema(t, `{"fields": ["title"], "storeFields": ["title"]}`))
	id := ix.RegisterDocument("doc-1")
	ix.StoreFields(id, map[string]any{"title": "Moby Dick"})

	artifact, err := Serialize(ix)
	if err != nil {
		t.Fatalf("Serialize returned %v", err)
	}
	want := map[string]map[string]any{"0": {"title": "Moby Dick"}}
	if !reflect.DeepEqual(artifact.StoredFields, want) {
		t.Errorf("StoredFields = %v, want %v", artifact.StoredFields, want)
	}
}

// Terms are guaranteed to be text at insertion time; a non-UTF-8 edge
// label during serialization is a corrupted invariant and must be fatal.
func TestSerializeRejectsInvalidUTF8(t *testing.T) {
	tr := trie.New()
	tr.Insert("\xff\xfe", 0, 0)

	if _, err := flattenTrie(tr); !errors.Is(err, apperrors.ErrTermDecoding) {
		t.Errorf("flattenTrie error = %v, want ErrTermDecoding", err)
	}
}

// Building the same corpus twice must produce byte-identical output.
func TestSerializeDeterministic(t *testing.T) {
	encode := func() []byte {
		artifact, err := Serialize(buildFixture(t))
		if err != nil {
			t.Fatalf("Serialize returned %v", err)
		}
		data, err := artifact.Encode()
		if err != nil {
			t.Fatalf("Encode returned %v", err)
		}
		return data
	}
	first := encode()
	for i := 0; i < 10; i++ {
		if next := encode(); !bytes.Equal(first, next) {
			t.Fatalf("run %d produced different bytes:\n%s\n%s", i, first, next)
		}
	}
}
