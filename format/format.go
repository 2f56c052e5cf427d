// Package format renders syntax trees for people and tools.
package format

import (
	"encoding"
	"io"

	"github.com/dhamidi/yarn/parser"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(tree *parser.Tree) error
}

// encodeTo writes the text of an encoder after it has been given a tree.
func encodeTo(w io.Writer, m encoding.TextMarshaler) error {
	text, err := m.MarshalText()
	if err != nil {
		return err
	}
	_, err = w.Write(text)
	return err
}
