package parser

import (
	"slices"

	"github.com/dhamidi/yarn/grammar"
)

// maxInsertions bounds the MISSING tokens inserted at end of input.
const maxInsertions = 32

// recover handles a lookahead no head can accept. At end of input it
// first tries to close open constructs with MISSING tokens; otherwise it
// wraps the offending input into an ERROR node and resumes in the nearest
// ancestor state that accepts the next token. It returns the lookahead to
// continue with, or the finished root.
func (ps *parse) recover(la lookahead) (lookahead, *subtree, error) {
	h := ps.heads[0]
	if la.symbol == grammar.SymbolEnd {
		var ok bool
		if h, ok = ps.insertMissing(h, la); ok {
			ps.heads = []head{h}
			return la, nil, nil
		}
	}
	return ps.panicMode(h, la)
}

func (ps *parse) missing(sym grammar.Symbol, h head) lookahead {
	leaf := missingLeaf(sym, h.top.state, ps.lex)
	return lookahead{tree: leaf, pos: ps.pos, symbol: sym, reach: ps.pos.bytes}
}

// insertMissing closes open constructs at end of input. Among the
// insertable tokens it prefers one after which the input may end, and
// otherwise takes the first one the table accepts.
func (ps *parse) insertMissing(h head, la lookahead) (head, bool) {
	for i := 0; i < maxInsertions; i++ {
		var pick []head
		var picked grammar.Symbol
		for _, sym := range ps.lang.Insertable() {
			if !ps.lang.HasAction(h.top.state, sym) {
				continue
			}
			heads, _ := ps.feed([]head{h}, ps.missing(sym, h))
			if len(heads) == 0 {
				continue
			}
			heads = mergeHeads(heads, ps.maxForks)
			if pick == nil {
				pick, picked = heads, sym
			}
			if ps.validAfter(heads, grammar.SymbolEnd) {
				pick, picked = heads, sym
				break
			}
		}
		if pick == nil {
			return h, false
		}
		h = pick[0]
		h.cost++
		log.Debugf("inserted missing %q at byte %d", ps.lang.Name(picked), ps.pos.bytes)
		if ps.lang.HasAction(h.top.state, grammar.SymbolEnd) {
			return h, true
		}
	}
	return h, false
}

func (ps *parse) validAfter(heads []head, sym grammar.Symbol) bool {
	return slices.ContainsFunc(heads, func(h head) bool { return ps.lang.HasAction(h.top.state, sym) })
}

// panicMode discards input until some state on the stack accepts the
// lookahead. The popped constructs and the skipped tokens become one
// ERROR node pushed, as an extra, on that state. End of input is handed
// to closeAtEnd.
func (ps *parse) panicMode(h head, la lookahead) (lookahead, *subtree, error) {
	info := &errorInfo{expected: ps.expectedNames(h.top.state), got: ps.describe(la)}
	ps.heads = []head{h}
	var skipped []*subtree
	for {
		if la.symbol == grammar.SymbolEnd {
			return ps.closeAtEnd(h, skipped, info, la)
		}
		var popped []*subtree
		for e := h.top; ; e = e.prev {
			if (e != h.top || len(skipped) > 0) && ps.lang.HasAction(e.state, la.symbol) {
				ps.heads = []head{{top: ps.pushError(e, popped, skipped, info), cost: h.cost + 1}}
				log.Debugf("recovered at byte %d: %d constructs popped, %d tokens skipped", la.pos.bytes, len(popped), len(skipped))
				return la, nil, nil
			}
			if e.prev == nil {
				break
			}
			popped = append(popped, e.node)
		}

		if ps.exhausted() {
			bottom := h.top
			for bottom.prev != nil {
				bottom = bottom.prev
			}
			ps.heads = []head{{top: ps.pushError(bottom, popped, skipped, info), cost: h.cost + 1}}
			return lookahead{}, nil, nil
		}

		skipped = append(skipped, la.tree)
		ps.shift(la)
		next, err := ps.scan(func(sym grammar.Symbol) bool {
			return h.top.validAnywhere(ps.lang, sym)
		})
		if err != nil {
			return lookahead{}, nil, err
		}
		la = next
	}
}

// closeAtEnd finishes a parse whose input ended inside a construct no
// state accepts end of input in. Walking down from the top, it wraps the
// skipped tokens and the constructs popped so far into an ERROR and tries
// to close the stack above it with MISSING tokens. The bottom entry always
// accepts end of input.
func (ps *parse) closeAtEnd(h head, skipped []*subtree, info *errorInfo, la lookahead) (lookahead, *subtree, error) {
	var popped []*subtree
	for e := h.top; ; e = e.prev {
		at := e
		if len(popped) > 0 || len(skipped) > 0 {
			at = ps.pushError(e, popped, skipped, info)
		}
		if e.prev == nil {
			return lookahead{}, ps.rootFrom(at.entries(), la.start()), nil
		}
		if ps.lang.HasAction(at.state, grammar.SymbolEnd) {
			ps.heads = []head{{top: at, cost: h.cost + 1}}
			return la, nil, nil
		}
		if closed, ok := ps.insertMissing(head{top: at, cost: h.cost + 1}, la); ok {
			log.Debugf("closed input at byte %d: %d constructs popped, %d tokens skipped", la.pos.bytes, len(popped), len(skipped))
			ps.heads = []head{closed}
			return la, nil, nil
		}
		popped = append(popped, e.node)
	}
}

// pushError pushes an ERROR extra holding popped (top first) and skipped
// on the entry at.
func (ps *parse) pushError(at *stackEntry, popped, skipped []*subtree, info *errorInfo) *stackEntry {
	var node *subtree
	if len(popped) == 0 && len(skipped) == 1 && skipped[0].isError() && skipped[0].isLeaf() {
		node = skipped[0].clone()
	} else {
		children := slices.Clone(popped)
		slices.Reverse(children)
		children = append(children, skipped...)
		node = newNode(ps.lang, grammar.SymbolError, children, at.state, false)
	}
	node.extra = true
	node.errInfo = info
	return at.push(at.state, node, ps.pos)
}

func (ps *parse) expectedNames(state int) []string {
	var out []string
	for _, sym := range ps.lang.Expected(state) {
		if ps.lang.IsVisible(sym) {
			out = append(out, ps.lang.Name(sym))
		}
	}
	return out
}

func (ps *parse) describe(la lookahead) string {
	switch la.symbol {
	case grammar.SymbolEnd:
		return "end of input"
	case grammar.SymbolError:
		return "invalid token"
	}
	return ps.lang.Name(la.symbol)
}
