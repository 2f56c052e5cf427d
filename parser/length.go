package parser

import "fmt"

// Point is a zero-based row and byte column.
type Point struct {
	Row    int
	Column int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row+1, p.Column+1)
}

// Less orders points in document order.
func (p Point) Less(o Point) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Column < o.Column)
}

// Range is a span of the source text.
type Range struct {
	StartByte  int
	EndByte    int
	StartPoint Point
	EndPoint   Point
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d) %s-%s", r.StartByte, r.EndByte, r.StartPoint, r.EndPoint)
}

// length is a byte count plus the extent it covers. Subtrees store their
// padding and size as lengths so that they can be shared at any offset.
type length struct {
	bytes  int
	extent Point
}

func (a length) add(b length) length {
	out := length{bytes: a.bytes + b.bytes}
	if b.extent.Row > 0 {
		out.extent = Point{Row: a.extent.Row + b.extent.Row, Column: b.extent.Column}
	} else {
		out.extent = Point{Row: a.extent.Row, Column: a.extent.Column + b.extent.Column}
	}
	return out
}

// sub returns the length from b to a; a must not precede b.
func (a length) sub(b length) length {
	out := length{bytes: a.bytes - b.bytes}
	if a.extent.Row > b.extent.Row {
		out.extent = Point{Row: a.extent.Row - b.extent.Row, Column: a.extent.Column}
	} else {
		out.extent = Point{Column: a.extent.Column - b.extent.Column}
	}
	return out
}

func (a length) saturatingSub(b length) length {
	if a.bytes > b.bytes {
		return a.sub(b)
	}
	return length{}
}

func lengthOf(bytes int, p Point) length { return length{bytes: bytes, extent: p} }

func lengthForText(text []byte) length {
	l := length{bytes: len(text)}
	for _, c := range text {
		if c == '\n' {
			l.extent.Row++
			l.extent.Column = 0
		} else {
			l.extent.Column++
		}
	}
	return l
}
