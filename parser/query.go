package parser

import (
	"iter"
	"slices"
)

// Descendants yields the visible descendants of n that satisfy pred, in
// pre-order, excluding n itself. A nil pred matches every node. The
// sequence is lazy: nothing is visited before the caller asks for it and
// stopping early stops the walk.
func (n Node) Descendants(pred func(Node) bool) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.sub == nil {
			return
		}
		var walk func(p Node) bool
		walk = func(p Node) bool {
			off := p.offset
			for i, c := range p.sub.children {
				if p.visible(c) {
					child := p.rawChild(i, off)
					if pred == nil || pred(child) {
						if !yield(child) {
							return false
						}
					}
					if !walk(child) {
						return false
					}
				}
				off = off.add(c.total())
			}
			return true
		}
		walk(n)
	}
}

// DescendantsOfKind yields the descendants whose kind is one of kinds.
func (n Node) DescendantsOfKind(kinds ...string) iter.Seq[Node] {
	return n.Descendants(func(d Node) bool {
		return slices.Contains(kinds, d.Kind())
	})
}

// Errors yields every ERROR and MISSING node in the tree.
func (t *Tree) Errors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		root := t.RootNode()
		if !root.HasError() {
			return
		}
		for n := range root.Descendants(func(d Node) bool { return d.IsError() || d.IsMissing() }) {
			if !yield(n) {
				return
			}
		}
	}
}

// Leaves yields every token under n in document order, including the
// zero-width indent and dedent tokens that Children leaves out.
func (n Node) Leaves() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.sub == nil {
			return
		}
		var walk func(p Node) bool
		walk = func(p Node) bool {
			if p.sub.isLeaf() {
				return yield(p)
			}
			off := p.offset
			for i, c := range p.sub.children {
				if !walk(p.rawChild(i, off)) {
					return false
				}
				off = off.add(c.total())
			}
			return true
		}
		walk(n)
	}
}
