package parser

import "fmt"

// Input supplies source text in chunks. Read returns the bytes starting at
// offset; an empty chunk marks the end of the text. Implementations must
// return the same bytes for the same offset during one parse.
type Input interface {
	Read(offset int) ([]byte, error)
}

// Bytes is an Input over an in-memory buffer.
type Bytes []byte

func (b Bytes) Read(offset int) ([]byte, error) {
	if offset < 0 || offset > len(b) {
		return nil, fmt.Errorf("read %d of %d bytes: %w", offset, len(b), ErrOffsetOutOfRange)
	}
	return b[offset:], nil
}

// ReadFunc adapts a function to Input.
type ReadFunc func(offset int) ([]byte, error)

func (f ReadFunc) Read(offset int) ([]byte, error) { return f(offset) }

// checkInput rejects inputs that cannot be read at all.
func checkInput(in Input) error {
	switch in := in.(type) {
	case nil:
		return inputError("read", 0, ErrInvalidInput)
	case ReadFunc:
		if in == nil {
			return inputError("read", 0, ErrInvalidInput)
		}
	}
	return nil
}

// readRange copies [start, end) out of in.
func readRange(in Input, start, end int) ([]byte, error) {
	out := make([]byte, 0, end-start)
	for off := start; off < end; {
		chunk, err := in.Read(off)
		if err != nil {
			return nil, inputError("read", off, err)
		}
		if len(chunk) == 0 {
			return nil, inputError("read", off, ErrOffsetOutOfRange)
		}
		n := min(len(chunk), end-off)
		out = append(out, chunk[:n]...)
		off += n
	}
	return out, nil
}

// checkLength verifies that in holds exactly n bytes.
func checkLength(in Input, n int) error {
	if n > 0 {
		chunk, err := in.Read(n - 1)
		if err != nil {
			return inputError("check input", n-1, err)
		}
		if len(chunk) == 0 {
			return inputError("check input", n-1, ErrInputMismatch)
		}
	}
	chunk, err := in.Read(n)
	if err != nil {
		return inputError("check input", n, err)
	}
	if len(chunk) != 0 {
		return inputError("check input", n, ErrInputMismatch)
	}
	return nil
}

// cursor reads an Input byte by byte, tracking the point and the furthest
// offset examined.
type cursor struct {
	in         Input
	chunk      []byte
	chunkStart int
	pos        length
	reach      int
	err        error
}

func newCursor(in Input) *cursor {
	return &cursor{in: in, chunkStart: -1}
}

func (c *cursor) seek(pos length) {
	c.pos = pos
	c.reach = pos.bytes
}

// byteAt returns the byte at an absolute offset, loading chunks as needed.
func (c *cursor) byteAt(off int) (byte, bool) {
	if off+1 > c.reach {
		c.reach = off + 1
	}
	if c.chunkStart >= 0 && off >= c.chunkStart && off < c.chunkStart+len(c.chunk) {
		return c.chunk[off-c.chunkStart], true
	}
	if c.err != nil {
		return 0, false
	}
	chunk, err := c.in.Read(off)
	if err != nil {
		c.err = inputError("read", off, err)
		return 0, false
	}
	if len(chunk) == 0 {
		return 0, false
	}
	c.chunk, c.chunkStart = chunk, off
	return chunk[0], true
}

// peek returns the byte i positions ahead of the cursor.
func (c *cursor) peek(i int) (byte, bool) { return c.byteAt(c.pos.bytes + i) }

func (c *cursor) cur() byte {
	b, _ := c.peek(0)
	return b
}

func (c *cursor) eof() bool {
	_, ok := c.peek(0)
	return !ok
}

func (c *cursor) hasPrefix(s string) bool {
	for i := 0; i < len(s); i++ {
		b, ok := c.peek(i)
		if !ok || b != s[i] {
			return false
		}
	}
	return true
}

func (c *cursor) advance() {
	b, ok := c.peek(0)
	if !ok {
		return
	}
	c.pos.bytes++
	if b == '\n' {
		c.pos.extent.Row++
		c.pos.extent.Column = 0
	} else {
		c.pos.extent.Column++
	}
}

func (c *cursor) advanceN(n int) {
	for i := 0; i < n; i++ {
		c.advance()
	}
}
