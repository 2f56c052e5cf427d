package parser

import (
	"slices"

	"github.com/dhamidi/yarn/grammar"
)

// stackEntry is one link of a persistent parse stack. Heads that fork
// share every entry below the fork.
type stackEntry struct {
	state int
	node  *subtree
	prev  *stackEntry
	end   length // absolute end of node
	depth int
}

func (e *stackEntry) push(state int, node *subtree, end length) *stackEntry {
	return &stackEntry{state: state, node: node, prev: e, end: end, depth: e.depth + 1}
}

// head is one live GLR stack.
type head struct {
	top  *stackEntry
	cost int
}

// sameStates reports whether two stacks hold the same state sequence.
func sameStates(a, b *stackEntry) bool {
	if a.depth != b.depth {
		return false
	}
	for a != b {
		if a.state != b.state {
			return false
		}
		a, b = a.prev, b.prev
	}
	return true
}

// mergeHeads drops heads whose state sequence repeats an earlier head's,
// keeping the cheaper one, and caps the result at limit.
func mergeHeads(heads []head, limit int) []head {
	slices.SortStableFunc(heads, func(a, b head) int { return a.cost - b.cost })
	out := heads[:0:0]
	for _, h := range heads {
		if !slices.ContainsFunc(out, func(o head) bool { return sameStates(o.top, h.top) }) {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// entries returns the nodes of a stack from bottom to top.
func (e *stackEntry) entries() []*subtree {
	var out []*subtree
	for ; e != nil && e.node != nil; e = e.prev {
		out = append(out, e.node)
	}
	slices.Reverse(out)
	return out
}

// validAnywhere reports whether any state on the stack has an action for
// sym. Recovery scans with it so that any resumable token is recognised.
func (e *stackEntry) validAnywhere(lang *grammar.Language, sym grammar.Symbol) bool {
	for ; e != nil; e = e.prev {
		if lang.HasAction(e.state, sym) {
			return true
		}
	}
	return false
}
