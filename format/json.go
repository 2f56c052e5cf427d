package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/yarn/parser"
)

// JSONEncoder writes the tree as indented JSON, one object per node.
type JSONEncoder struct {
	w    io.Writer
	tree *parser.Tree
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return encodeTo(e.w, e)
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data, err := json.MarshalIndent(jsonTree{
		Incomplete: e.tree.Incomplete(),
		Root:       e.tree.RootNode(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

type jsonTree struct {
	Incomplete bool        `json:"incomplete,omitempty"`
	Root       parser.Node `json:"root"`
}
