// Package stats accumulates corpus-wide and per-document token counts per
// field. The consuming search runtime uses them for length normalization.
package stats

// Tracker counts token occurrences. It is updated once per token, in step
// with postings insertion.
type Tracker struct {
	// fieldTokens[fieldID] is the corpus-wide token count for the field.
	fieldTokens map[int]int
	// docFieldTokens[shortID][fieldID] is the token count one document
	// contributed to one field.
	docFieldTokens map[int]map[int]int
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		fieldTokens:    make(map[int]int),
		docFieldTokens: make(map[int]map[int]int),
	}
}

// RecordOccurrence counts one token occurrence of fieldID in the document
// shortID.
func (t *Tracker) RecordOccurrence(fieldID, shortID int) {
	t.fieldTokens[fieldID]++
	perField, ok := t.docFieldTokens[shortID]
	if !ok {
		perField = make(map[int]int)
		t.docFieldTokens[shortID] = perField
	}
	perField[fieldID]++
}

// AverageFieldLength returns the corpus-wide token count for fieldID
// divided by the document count. An empty corpus yields 0 rather than a
// division-by-zero NaN.
func (t *Tracker) AverageFieldLength(fieldID, documentCount int) float64 {
	if documentCount == 0 {
		return 0
	}
	return float64(t.fieldTokens[fieldID]) / float64(documentCount)
}

// FieldTokenCounts returns the corpus-wide token count per field. Only
// fields that contributed at least one token appear.
func (t *Tracker) FieldTokenCounts() map[int]int {
	return t.fieldTokens
}

// DocFieldTokenCounts returns per-document per-field token counts.
func (t *Tracker) DocFieldTokenCounts() map[int]map[int]int {
	return t.docFieldTokens
}
