package parser

import (
	"strconv"
	"strings"

	"github.com/dhamidi/yarn/grammar"
)

// Node is a read-only view of a subtree at a position in a Tree. Nodes are
// values; the zero Node stands for "no node".
type Node struct {
	tree   *Tree
	sub    *subtree
	offset length // start of the padding
	parent *Node
	index  int // index among the parent's raw children
}

func (n Node) IsZero() bool { return n.sub == nil }

func (n Node) Tree() *Tree { return n.tree }

// Kind is the grammar name of the node: a snake_case rule name, a terminal
// name, or the literal text of an anonymous token.
func (n Node) Kind() string {
	if n.sub == nil {
		return ""
	}
	return n.tree.lang.Name(n.sub.symbol)
}

func (n Node) Symbol() grammar.Symbol { return n.sub.symbol }

func (n Node) IsNamed() bool   { return n.sub != nil && n.tree.lang.IsNamed(n.sub.symbol) }
func (n Node) IsError() bool   { return n.sub != nil && n.sub.isError() }
func (n Node) IsMissing() bool { return n.sub != nil && n.sub.missing }
func (n Node) IsExtra() bool   { return n.sub != nil && n.sub.extra }

// HasError reports whether the node is or contains an ERROR or MISSING
// node.
func (n Node) HasError() bool {
	return n.sub != nil && (n.sub.hasError || n.sub.isError() || n.sub.missing)
}

func (n Node) start() length { return n.offset.add(n.sub.padding) }
func (n Node) end() length   { return n.offset.add(n.sub.total()) }

func (n Node) StartByte() int    { return n.start().bytes }
func (n Node) EndByte() int      { return n.end().bytes }
func (n Node) StartPoint() Point { return n.start().extent }
func (n Node) EndPoint() Point   { return n.end().extent }

func (n Node) Range() Range {
	s, e := n.start(), n.end()
	return Range{StartByte: s.bytes, EndByte: e.bytes, StartPoint: s.extent, EndPoint: e.extent}
}

func (n Node) Text() string { return n.tree.Text(n) }

func (n Node) visible(c *subtree) bool { return n.tree.lang.IsVisible(c.symbol) }

// rawChild returns the i-th child including invisible ones.
func (n Node) rawChild(i int, offset length) Node {
	p := n
	return Node{tree: n.tree, sub: n.sub.children[i], offset: offset, parent: &p, index: i}
}

// Children returns the visible children, named and anonymous.
func (n Node) Children() []Node {
	if n.sub == nil || n.sub.isLeaf() {
		return nil
	}
	var out []Node
	off := n.offset
	for i, c := range n.sub.children {
		if n.visible(c) {
			out = append(out, n.rawChild(i, off))
		}
		off = off.add(c.total())
	}
	return out
}

func (n Node) ChildCount() int {
	if n.sub == nil {
		return 0
	}
	count := 0
	for _, c := range n.sub.children {
		if n.visible(c) {
			count++
		}
	}
	return count
}

// Child returns the i-th visible child, or the zero Node.
func (n Node) Child(i int) Node {
	if n.sub == nil {
		return Node{}
	}
	off := n.offset
	for j, c := range n.sub.children {
		if n.visible(c) {
			if i == 0 {
				return n.rawChild(j, off)
			}
			i--
		}
		off = off.add(c.total())
	}
	return Node{}
}

func (n Node) NamedChildren() []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.IsNamed() {
			out = append(out, c)
		}
	}
	return out
}

func (n Node) NamedChildCount() int { return len(n.NamedChildren()) }

func (n Node) NamedChild(i int) Node {
	named := n.NamedChildren()
	if i < 0 || i >= len(named) {
		return Node{}
	}
	return named[i]
}

// ChildByKind returns the first visible child of the given kind.
func (n Node) ChildByKind(kind string) Node {
	for _, c := range n.Children() {
		if c.Kind() == kind {
			return c
		}
	}
	return Node{}
}

func (n Node) Parent() Node {
	if n.parent == nil {
		return Node{}
	}
	return *n.parent
}

func (n Node) NextSibling() Node { return n.sibling(1, false) }
func (n Node) PrevSibling() Node { return n.sibling(-1, false) }

func (n Node) NextNamedSibling() Node { return n.sibling(1, true) }
func (n Node) PrevNamedSibling() Node { return n.sibling(-1, true) }

func (n Node) sibling(dir int, named bool) Node {
	if n.parent == nil {
		return Node{}
	}
	p := n.parent
	var found Node
	off := p.offset
	for i, c := range p.sub.children {
		if (dir > 0 && i > n.index) || (dir < 0 && i < n.index) {
			if n.visible(c) && (!named || n.tree.lang.IsNamed(c.symbol)) {
				found = p.rawChild(i, off)
				if dir > 0 {
					return found
				}
			}
		}
		off = off.add(c.total())
	}
	return found
}

// Error describes an ERROR or MISSING node; it is nil for other nodes.
func (n Node) Error() *SyntaxError {
	switch {
	case n.IsMissing():
		return &SyntaxError{Range: n.Range(), Expected: []string{n.Kind()}}
	case n.IsError():
		se := &SyntaxError{Range: n.Range()}
		if info := n.sub.errInfo; info != nil {
			se.Expected, se.Got = info.expected, info.got
		} else {
			se.Got = strconv.Quote(n.Text())
		}
		return se
	}
	return nil
}

// String renders the node as an S-expression of its named descendants.
// Missing tokens are shown as (MISSING kind).
func (n Node) String() string {
	if n.sub == nil {
		return "()"
	}
	var sb strings.Builder
	n.writeSexp(&sb)
	return sb.String()
}

func (n Node) writeSexp(sb *strings.Builder) {
	if n.IsMissing() {
		if n.IsNamed() {
			sb.WriteString("(MISSING " + n.Kind() + ")")
		} else {
			sb.WriteString("(MISSING " + strconv.Quote(n.Kind()) + ")")
		}
		return
	}
	sb.WriteString("(" + n.Kind())
	for _, c := range n.Children() {
		if c.IsNamed() || c.IsMissing() {
			sb.WriteByte(' ')
			c.writeSexp(sb)
		}
	}
	sb.WriteByte(')')
}
