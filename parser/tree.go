package parser

import (
	"github.com/dhamidi/yarn/grammar"
)

// Stats counts how a tree was produced.
type Stats struct {
	// Lexed is the number of tokens scanned.
	Lexed int
	// Reused is the number of leaves taken over from the previous tree.
	Reused int
}

// Tree is an immutable syntax tree. Trees share unchanged subtrees with
// the trees they were reparsed from, so they are cheap to keep.
type Tree struct {
	lang       *grammar.Language
	root       *subtree
	in         Input
	incomplete bool
	stats      Stats
}

// RootNode returns the source_file node.
func (t *Tree) RootNode() Node {
	return Node{tree: t, sub: t.root}
}

func (t *Tree) Language() *grammar.Language { return t.lang }

// Incomplete reports whether the parse stopped early because its budget
// ran out or its context was cancelled. The tree then covers only the
// text parsed so far.
func (t *Tree) Incomplete() bool { return t.incomplete }

// Len returns the number of bytes the tree spans.
func (t *Tree) Len() int { return t.root.total().bytes }

func (t *Tree) Stats() Stats { return t.stats }

// Text returns the source of n. Trees returned by Edit have no text.
func (t *Tree) Text(n Node) string {
	if t.in == nil || n.IsZero() {
		return ""
	}
	b, err := readRange(t.in, n.StartByte(), n.EndByte())
	if err != nil {
		return ""
	}
	return string(b)
}

// Edit returns a copy of t with e applied to its positions. Subtrees the
// edit touches are marked as changed; the result can be passed to a
// reparse but has no text of its own.
func (t *Tree) Edit(e Edit) (*Tree, error) {
	if err := e.validate(t.Len()); err != nil {
		return nil, err
	}
	return &Tree{
		lang:       t.lang,
		root:       t.root.edit(e.lengths()),
		incomplete: t.incomplete,
	}, nil
}

func (t *Tree) String() string { return t.RootNode().String() }

// Walk calls fn for every visible node in pre-order, starting at the
// root. Returning false skips the children of that node.
func (t *Tree) Walk(fn func(Node) bool) {
	var walk func(n Node)
	walk = func(n Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(t.RootNode())
}
