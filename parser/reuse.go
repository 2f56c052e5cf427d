package parser

type reuseFrame struct {
	tree   *subtree
	index  int    // index in the parent's children
	offset length // absolute start of the padding
}

// reuseCursor walks the previous tree in document order. The top frame is
// the candidate subtree; the frames below are its ancestors.
type reuseCursor struct {
	stack []reuseFrame
}

func newReuseCursor(root *subtree) *reuseCursor {
	return &reuseCursor{stack: []reuseFrame{{tree: root}}}
}

func (c *reuseCursor) node() (*subtree, length) {
	if len(c.stack) == 0 {
		return nil, length{}
	}
	f := c.stack[len(c.stack)-1]
	return f.tree, f.offset
}

// advance moves to the subtree following the current one.
func (c *reuseCursor) advance() {
	for len(c.stack) > 0 {
		f := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		if len(c.stack) == 0 {
			return
		}
		parent := c.stack[len(c.stack)-1].tree
		if next := f.index + 1; next < len(parent.children) {
			c.stack = append(c.stack, reuseFrame{
				tree:   parent.children[next],
				index:  next,
				offset: f.offset.add(f.tree.total()),
			})
			return
		}
	}
}

// descend moves to the first child holding a token.
func (c *reuseCursor) descend() bool {
	t, off := c.node()
	if t == nil || t.isLeaf() {
		return false
	}
	for i, child := range t.children {
		if child.leaves > 0 {
			c.stack = append(c.stack, reuseFrame{tree: child, index: i, offset: off})
			return true
		}
		off = off.add(child.total())
	}
	return false
}

// reusable returns the subtree of the previous tree that can stand in for
// the input at the current position, if any.
func (ps *parse) reusable() (*subtree, length) {
	c := ps.reuse
	if c == nil || len(ps.heads) != 1 {
		return nil, length{}
	}
	pos := ps.pos.bytes
	for {
		t, off := c.node()
		if t == nil {
			return nil, length{}
		}
		end := off.bytes + t.total().bytes
		switch {
		case off.bytes > pos:
			return nil, length{}
		case t.leaves == 0:
			c.advance()
		case off.bytes < pos:
			if end <= pos || !c.descend() {
				c.advance()
			}
		case ps.canReuse(t):
			return t, off
		case !c.descend():
			return nil, length{}
		}
	}
}

// canReuse reports whether t, starting at the current position, would be
// rebuilt identically: it is unchanged and error free, and both the
// scanner and the automaton are in the states it was built in.
func (ps *parse) canReuse(t *subtree) bool {
	if t.hasChanges || t.hasError || t.fragile || t.missing || t.isError() {
		return false
	}
	if !t.lexBefore.Equal(ps.lex) {
		return false
	}
	leaf, _ := t.firstLeaf(length{})
	return leaf != nil && !leaf.fragile && leaf.parseState == ps.heads[0].top.state
}
