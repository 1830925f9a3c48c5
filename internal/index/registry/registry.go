// Package registry assigns compact numeric document IDs and retains the
// original identifiers and stored field values for the output artifact.
package registry

// Registry maps short document IDs, assigned sequentially from 0 in
// registration order, back to the original document identifiers. It also
// holds the stored-field values retained verbatim for display.
type Registry struct {
	// originalIDs[shortID] is the document's original id value, an
	// arbitrary scalar (string, number, or null).
	originalIDs []any
	stored      map[int]map[string]any
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		stored: make(map[int]map[string]any),
	}
}

// Register assigns the next sequential short ID to a document and records
// its original identifier. The same original identifier registered twice
// yields two distinct short IDs; callers are expected to deduplicate.
func (r *Registry) Register(originalID any) int {
	shortID := len(r.originalIDs)
	r.originalIDs = append(r.originalIDs, originalID)
	return shortID
}

// StoreFields records the retained field values for a registered document.
// Values are kept verbatim and never tokenized.
func (r *Registry) StoreFields(shortID int, values map[string]any) {
	if len(values) == 0 {
		return
	}
	r.stored[shortID] = values
}

// Count returns the number of registered documents, which is also the next
// unassigned short ID.
func (r *Registry) Count() int {
	return len(r.originalIDs)
}

// OriginalID returns the original identifier for a short ID and whether the
// ID has been assigned.
func (r *Registry) OriginalID(shortID int) (any, bool) {
	if shortID < 0 || shortID >= len(r.originalIDs) {
		return nil, false
	}
	return r.originalIDs[shortID], true
}

// OriginalIDs returns original identifiers indexed by short ID.
func (r *Registry) OriginalIDs() []any {
	return r.originalIDs
}

// Stored returns the retained field values keyed by short ID.
func (r *Registry) Stored() map[int]map[string]any {
	return r.stored
}
