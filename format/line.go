package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/yarn/parser"
)

// LineEncoder writes one tab-separated line per token:
//
//	start-end	kind	text	flags
//
// Zero-width indentation tokens are included.
type LineEncoder struct {
	w    io.Writer
	tree *parser.Tree
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return encodeTo(e.w, e)
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	for leaf := range e.tree.RootNode().Leaves() {
		fmt.Fprintf(&sb, "%s-%s\t%s\t%s\t%s\n",
			leaf.StartPoint(),
			leaf.EndPoint(),
			leaf.Kind(),
			strconv.Quote(leaf.Text()),
			flagsStr(leaf),
		)
	}
	return []byte(sb.String()), nil
}

func flagsStr(n parser.Node) string {
	var flags []string
	if n.IsError() {
		flags = append(flags, "error")
	}
	if n.IsMissing() {
		flags = append(flags, "missing")
	}
	if n.IsExtra() {
		flags = append(flags, "extra")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
