package workspace

import (
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/yarn/parser"
)

// toPosition converts a byte offset and its point into an LSP position,
// whose character counts UTF-16 code units.
func toPosition(content []byte, offset int, p parser.Point) protocol.Position {
	lineStart := max(0, offset-p.Column)
	offset = min(offset, len(content))
	var units uint32
	for i := lineStart; i < offset; {
		r, size := utf8.DecodeRune(content[i:])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return protocol.Position{Line: uint32(p.Row), Character: units}
}

func toRange(content []byte, r parser.Range) protocol.Range {
	return protocol.Range{
		Start: toPosition(content, r.StartByte, r.StartPoint),
		End:   toPosition(content, r.EndByte, r.EndPoint),
	}
}

// toOffset converts an LSP position into a byte offset of content.
func toOffset(content []byte, pos protocol.Position) int {
	return pos.IndexIn(string(content))
}
