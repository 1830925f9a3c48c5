// Package trie implements the inverted postings store: a radix tree keyed
// by term bytes where chains of single-child nodes are merged into
// multi-byte edge labels. Each word-terminal node owns a growable list of
// (document, field) occurrence records.
package trie

import "bytes"

// Posting is one recorded occurrence of a term in a (document, field) pair.
// Repeated postings for the same pair are significant: they carry the raw
// term frequency prior to aggregation.
type Posting struct {
	DocID   int
	FieldID int
}

type node struct {
	// label holds the bytes consumed on the edge from the parent.
	label []byte
	// children are ordered by the first byte of their labels, which fixes
	// the walk order.
	children []*node
	// postings is non-nil exactly when the path to this node spells a
	// complete term.
	postings []Posting
}

// Tree is the postings store. Not safe for concurrent mutation; it is
// owned by the single inserting goroutine of the build.
type Tree struct {
	root  node
	terms int
}

// New creates an empty Tree.
func New() *Tree {
	return &Tree{}
}

// Len returns the number of distinct terms stored.
func (t *Tree) Len() int {
	return t.terms
}

// Insert appends one occurrence to the term's posting list, creating the
// term's node if it does not exist. Cost is proportional to the key length
// plus one append; the list is mutated in place, never rebuilt.
func (t *Tree) Insert(term string, docID, fieldID int) {
	p := Posting{DocID: docID, FieldID: fieldID}
	cur := &t.root
	key := []byte(term)

	for {
		if len(key) == 0 {
			if cur.postings == nil {
				t.terms++
			}
			cur.postings = append(cur.postings, p)
			return
		}

		idx, found := cur.findChild(key[0])
		if !found {
			child := &node{label: key, postings: []Posting{p}}
			cur.insertChild(idx, child)
			t.terms++
			return
		}

		child := cur.children[idx]
		n := commonPrefix(child.label, key)
		if n == len(child.label) {
			cur = child
			key = key[n:]
			continue
		}

		// The edge label and the key diverge inside the label: split the
		// edge at the divergence point.
		mid := &node{
			label:    child.label[:n],
			children: []*node{child},
		}
		child.label = child.label[n:]
		cur.children[idx] = mid
		cur = mid
		key = key[n:]
	}
}

// Get returns the posting list for term, or nil if the term is absent.
func (t *Tree) Get(term string) []Posting {
	cur := &t.root
	key := []byte(term)
	for len(key) > 0 {
		idx, found := cur.findChild(key[0])
		if !found {
			return nil
		}
		child := cur.children[idx]
		if !bytes.HasPrefix(key, child.label) {
			return nil
		}
		key = key[len(child.label):]
		cur = child
	}
	return cur.postings
}

// Walk visits every node except the root in depth-first pre-order,
// reporting its depth in the compressed tree (top-level nodes are depth 1),
// its edge label, and its posting list (nil for non-terminal nodes).
// Children are visited in byte order. The traversal uses an explicit stack
// so adversarially deep tries cannot overflow the goroutine stack.
func (t *Tree) Walk(visit func(depth int, label []byte, postings []Posting) error) error {
	type frame struct {
		n     *node
		depth int
	}
	stack := make([]frame, 0, len(t.root.children))
	for i := len(t.root.children) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.root.children[i], 1})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := visit(f.depth, f.n.label, f.n.postings); err != nil {
			return err
		}
		for i := len(f.n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.children[i], f.depth + 1})
		}
	}
	return nil
}

// findChild locates the child whose label starts with b. It returns the
// insertion index and whether the child exists.
func (n *node) findChild(b byte) (int, bool) {
	lo, hi := 0, len(n.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.children[mid].label[0] < b {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.children) && n.children[lo].label[0] == b {
		return lo, true
	}
	return lo, false
}

func (n *node) insertChild(idx int, child *node) {
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
}

func commonPrefix(a, b []byte) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
