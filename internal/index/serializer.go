package index

import (
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/searchfoundry/minidex/internal/index/trie"
	"github.com/searchfoundry/minidex/pkg/errors"
)

// Artifact is the serialized index in the exact shape the search runtime
// loads. Field names and nesting are fixed by that external contract.
type Artifact struct {
	DocumentCount      int                       `json:"documentCount"`
	NextID             int                       `json:"nextId"`
	DocumentIDs        map[string]any            `json:"documentIds"`
	FieldIDs           map[string]int            `json:"fieldIds"`
	AverageFieldLength map[string]float64        `json:"averageFieldLength"`
	FieldLength        map[string]map[string]int `json:"fieldLength"`
	Index              Tree                      `json:"index"`
	StoredFields       map[string]map[string]any `json:"storedFields"`
}

// Tree is the prefix-compressed term tree. Each key of a nested object is
// either an edge-label fragment leading to a child object, or the empty
// string marking a complete term, whose value maps field IDs to that
// term's df/ds statistics.
type Tree struct {
	Prefix string         `json:"_prefix"`
	Tree   map[string]any `json:"_tree"`
}

// Encode renders the artifact as JSON. encoding/json writes map keys in
// sorted order, so repeated builds of the same corpus produce identical
// bytes.
func (a *Artifact) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// Serialize consumes the finished index and produces the output artifact.
// The index must not be mutated afterwards.
func Serialize(ix *Index) (*Artifact, error) {
	docCount := ix.registry.Count()

	documentIDs := make(map[string]any, docCount)
	for shortID, originalID := range ix.registry.OriginalIDs() {
		documentIDs[strconv.Itoa(shortID)] = originalID
	}

	averageFieldLength := make(map[string]float64)
	for fieldID := range ix.stats.FieldTokenCounts() {
		averageFieldLength[strconv.Itoa(fieldID)] = ix.stats.AverageFieldLength(fieldID, docCount)
	}

	fieldLength := make(map[string]map[string]int, docCount)
	for shortID, perField := range ix.stats.DocFieldTokenCounts() {
		lengths := make(map[string]int, len(perField))
		for fieldID, count := range perField {
			lengths[strconv.Itoa(fieldID)] = count
		}
		fieldLength[strconv.Itoa(shortID)] = lengths
	}

	storedFields := make(map[string]map[string]any, len(ix.registry.Stored()))
	for shortID, values := range ix.registry.Stored() {
		storedFields[strconv.Itoa(shortID)] = values
	}

	tree, err := flattenTrie(ix.postings)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		DocumentCount:      docCount,
		NextID:             docCount,
		DocumentIDs:        documentIDs,
		FieldIDs:           ix.fieldIDs,
		AverageFieldLength: averageFieldLength,
		FieldLength:        fieldLength,
		Index:              Tree{Prefix: "", Tree: tree},
		StoredFields:       storedFields,
	}, nil
}

// flattenTrie turns the radix tree's pre-order walk into the nested tree
// object. A stack of (fragment, object) frames mirrors the path from the
// root to the node being visited: moving up in the traversal closes the
// deeper frames by merging each into its parent under its fragment key.
func flattenTrie(t *trie.Tree) (map[string]any, error) {
	type frame struct {
		fragment string
		obj      map[string]any
	}
	stack := []frame{{fragment: "", obj: map[string]any{}}}

	err := t.Walk(func(depth int, label []byte, postings []trie.Posting) error {
		if !utf8.Valid(label) {
			return errors.Newf(errors.ErrTermDecoding, errors.ExitBuild,
				"edge label %q", label)
		}
		// depth+1 <= len(stack) means the traversal has returned to or
		// above an open level; close frames until the stack top is this
		// node's parent.
		for depth+1 <= len(stack) {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].obj[top.fragment] = top.obj
		}
		obj := map[string]any{}
		if postings != nil {
			obj[""] = terminalEntry(postings)
		}
		stack = append(stack, frame{fragment: string(label), obj: obj})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for len(stack) > 1 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack[len(stack)-1].obj[top.fragment] = top.obj
	}
	return stack[0].obj, nil
}

// terminalEntry aggregates a term's occurrence list into per-field
// statistics. The entry is keyed by field ID so a term shared by several
// fields keeps every field's statistics side by side.
func terminalEntry(postings []trie.Posting) map[string]any {
	perField := make(map[int]map[int]int)
	for _, p := range postings {
		docs, ok := perField[p.FieldID]
		if !ok {
			docs = make(map[int]int)
			perField[p.FieldID] = docs
		}
		docs[p.DocID]++
	}

	entry := make(map[string]any, len(perField))
	for fieldID, docs := range perField {
		ds := make(map[string]int, len(docs))
		for docID, count := range docs {
			ds[strconv.Itoa(docID)] = count
		}
		entry[strconv.Itoa(fieldID)] = map[string]any{
			"df": len(docs),
			"ds": ds,
		}
	}
	return entry
}
