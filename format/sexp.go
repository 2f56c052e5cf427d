package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/yarn/parser"
)

// SexpEncoder writes the named nodes of a tree as an indented
// S-expression. With positions, every node is followed by its range.
type SexpEncoder struct {
	w         io.Writer
	tree      *parser.Tree
	positions bool
}

func NewSexpEncoder(w io.Writer, positions bool) *SexpEncoder {
	return &SexpEncoder{w: w, positions: positions}
}

func (e *SexpEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return encodeTo(e.w, e)
}

func (e *SexpEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	e.write(&sb, e.tree.RootNode(), 0)
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

func (e *SexpEncoder) write(sb *strings.Builder, n parser.Node, depth int) {
	if depth > 0 {
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat("  ", depth))
	}
	sb.WriteByte('(')
	switch {
	case n.IsMissing() && n.IsNamed():
		sb.WriteString("MISSING " + n.Kind())
	case n.IsMissing():
		sb.WriteString("MISSING " + strconv.Quote(n.Kind()))
	default:
		sb.WriteString(n.Kind())
	}
	if e.positions {
		fmt.Fprintf(sb, " [%s - %s]", n.StartPoint(), n.EndPoint())
	}
	for _, c := range n.Children() {
		if c.IsNamed() || c.IsMissing() {
			e.write(sb, c, depth+1)
		}
	}
	sb.WriteByte(')')
}
