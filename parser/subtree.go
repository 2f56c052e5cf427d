package parser

import (
	"slices"

	"github.com/dhamidi/yarn/grammar"
)

// subtree is an immutable syntax tree record. Positions are relative: a
// subtree knows its padding (the whitespace before it) and its size, never
// its offset, so one record can be shared by successive trees at different
// offsets. Leaves have nil children.
type subtree struct {
	symbol   grammar.Symbol
	padding  length
	size     length
	children []*subtree

	// lookahead counts the bytes past the end that were examined while
	// this subtree was built.
	lookahead int

	// parseState is the automaton state below a nonterminal, or the top
	// state when a leaf was scanned.
	parseState int
	lexBefore  LexState
	lexAfter   LexState
	leaves     int

	extra      bool
	missing    bool
	fragile    bool
	hasChanges bool
	hasError   bool

	errInfo *errorInfo
}

func (t *subtree) total() length { return t.padding.add(t.size) }
func (t *subtree) isLeaf() bool  { return t.children == nil }
func (t *subtree) isError() bool { return t.symbol == grammar.SymbolError }

func (t *subtree) clone() *subtree {
	out := *t
	if t.children != nil {
		out.children = slices.Clone(t.children)
	}
	return &out
}

func leafFromToken(tok token, lang *grammar.Language, state int, fragile bool) *subtree {
	return &subtree{
		symbol:     tok.symbol,
		padding:    tok.padding,
		size:       tok.size,
		lookahead:  tok.lookahead,
		parseState: state,
		lexBefore:  tok.before,
		lexAfter:   tok.after,
		leaves:     1,
		extra:      lang.IsExtra(tok.symbol),
		fragile:    fragile,
	}
}

func missingLeaf(sym grammar.Symbol, state int, lex LexState) *subtree {
	return &subtree{
		symbol:     sym,
		parseState: state,
		lexBefore:  lex,
		lexAfter:   lex,
		leaves:     1,
		missing:    true,
		hasError:   true,
	}
}

// newNode builds a nonterminal. Children of hidden nonterminals are
// inlined, so hidden rules never appear in a finished tree.
func newNode(lang *grammar.Language, sym grammar.Symbol, children []*subtree, state int, fragile bool) *subtree {
	flat := make([]*subtree, 0, len(children))
	for _, c := range children {
		if !c.isLeaf() && !c.isError() && !lang.IsVisible(c.symbol) {
			flat = append(flat, c.children...)
			continue
		}
		flat = append(flat, c)
	}
	t := &subtree{symbol: sym, children: flat, parseState: state, fragile: fragile}
	t.summarize()
	return t
}

// summarize derives the position and flags of a nonterminal from its
// children.
func (t *subtree) summarize() {
	t.padding, t.size = length{}, length{}
	t.lookahead, t.leaves = 0, 0
	t.hasError = false

	var total length
	reach, first := 0, true
	for _, c := range t.children {
		ct := c.total()
		if first && ct.bytes > 0 {
			t.padding = total.add(c.padding)
			first = false
		}
		total = total.add(ct)
		reach = max(reach, total.bytes+c.lookahead)
		t.leaves += c.leaves
		if c.hasError || c.isError() || c.missing {
			t.hasError = true
		}
	}
	t.size = total.sub(t.padding)
	t.lookahead = max(0, reach-total.bytes)

	for _, c := range t.children {
		if c.leaves > 0 {
			t.lexBefore = c.lexBefore
			break
		}
	}
	for i := len(t.children) - 1; i >= 0; i-- {
		if t.children[i].leaves > 0 {
			t.lexAfter = t.children[i].lexAfter
			break
		}
	}
}

// firstLeaf returns the leftmost leaf and the absolute offset of its
// padding, given the offset of t.
func (t *subtree) firstLeaf(offset length) (*subtree, length) {
	for !t.isLeaf() {
		next := (*subtree)(nil)
		for _, c := range t.children {
			if c.leaves > 0 {
				next = c
				break
			}
			offset = offset.add(c.total())
		}
		if next == nil {
			return nil, offset
		}
		t = next
	}
	return t, offset
}

// editLengths is an Edit relative to the start of a subtree's padding.
type editLengths struct {
	start, oldEnd, newEnd length
}

// edit returns a copy of t adjusted for e. Every subtree the edit touches,
// including those whose lookahead reaches into it, is copied and marked as
// changed; untouched subtrees are shared.
func (t *subtree) edit(e editLengths) *subtree {
	pureInsertion := e.oldEnd.bytes == e.start.bytes
	noop := pureInsertion && e.newEnd.bytes == e.start.bytes

	padding, size := t.padding, t.size
	total := t.total()
	if e.start.bytes > total.bytes+t.lookahead || (noop && e.start.bytes == total.bytes+t.lookahead) {
		return t
	}

	switch {
	case e.oldEnd.bytes <= padding.bytes:
		// Entirely inside the padding: shift.
		padding = e.newEnd.add(padding.sub(e.oldEnd))
	case e.start.bytes < padding.bytes:
		// Starts in the padding and reaches into the content.
		size = size.saturatingSub(e.oldEnd.sub(padding))
		padding = e.newEnd
	case e.start.bytes < total.bytes || (e.start.bytes == total.bytes && pureInsertion):
		size = e.newEnd.sub(padding).add(total.saturatingSub(e.oldEnd))
	}

	out := t.clone()
	out.padding, out.size = padding, size
	out.hasChanges = true

	var left, right length
	for i, child := range out.children {
		ct := child.total()
		left = right
		right = left.add(ct)

		if right.bytes+child.lookahead < e.start.bytes {
			continue
		}
		if left.bytes > e.oldEnd.bytes || (left.bytes == e.oldEnd.bytes && ct.bytes > 0 && i > 0) {
			break
		}

		ce := editLengths{
			start:  e.start.saturatingSub(left),
			oldEnd: e.oldEnd.saturatingSub(left),
			newEnd: e.newEnd.saturatingSub(left),
		}
		// Inserted text belongs to the first child that touches the edit.
		if right.bytes > e.start.bytes || (right.bytes == e.start.bytes && pureInsertion) {
			e.newEnd = e.start
		} else {
			ce.oldEnd = ce.start
			ce.newEnd = ce.start
		}
		out.children[i] = child.edit(ce)
	}
	return out
}
