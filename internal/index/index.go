// Package index owns the build lifecycle of one inverted index: the
// positional field-ID table, the document registry, the field statistics,
// and the postings store, plus the serializer that flattens the finished
// index into the artifact consumed by the search runtime.
package index

import (
	"github.com/searchfoundry/minidex/internal/index/registry"
	"github.com/searchfoundry/minidex/internal/index/schema"
	"github.com/searchfoundry/minidex/internal/index/stats"
	"github.com/searchfoundry/minidex/internal/index/tokenizer"
	"github.com/searchfoundry/minidex/internal/index/trie"
)

// Token is one tokenized occurrence ready for insertion: the raw term, the
// field it came from, and the document's short ID.
type Token struct {
	Term    string
	FieldID int
	DocID   int
}

// Index accumulates a corpus during the build phase and becomes immutable
// once serialized. There is no update or delete path.
type Index struct {
	fieldIDs map[string]int
	registry *registry.Registry
	stats    *stats.Tracker
	postings *trie.Tree
}

// New creates an empty Index with field IDs assigned from the schema's
// field order.
func New(s *schema.Schema) *Index {
	return &Index{
		fieldIDs: s.FieldIDs(),
		registry: registry.New(),
		stats:    stats.New(),
		postings: trie.New(),
	}
}

// RegisterDocument assigns the next short ID to a document and records its
// original identifier.
func (ix *Index) RegisterDocument(originalID any) int {
	return ix.registry.Register(originalID)
}

// StoreFields retains the configured stored-field values for a document.
func (ix *Index) StoreFields(shortID int, values map[string]any) {
	ix.registry.StoreFields(shortID, values)
}

// AddToken normalizes one token and records it: the field statistics and
// the postings store are updated together so they cannot drift apart.
func (ix *Index) AddToken(term string, fieldID, docID int) {
	ix.stats.RecordOccurrence(fieldID, docID)
	ix.postings.Insert(tokenizer.Normalize(term), docID, fieldID)
}

// AddTokens records a batch of tokens in order.
func (ix *Index) AddTokens(tokens []Token) {
	for _, tok := range tokens {
		ix.AddToken(tok.Term, tok.FieldID, tok.DocID)
	}
}

// FieldIDs returns the field-name to field-ID table.
func (ix *Index) FieldIDs() map[string]int {
	return ix.fieldIDs
}

// DocumentCount returns the number of registered documents.
func (ix *Index) DocumentCount() int {
	return ix.registry.Count()
}

// TermCount returns the number of distinct terms indexed so far.
func (ix *Index) TermCount() int {
	return ix.postings.Len()
}
