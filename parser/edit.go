package parser

import "fmt"

// Edit describes a replacement of [StartByte, OldEndByte) by text ending
// at NewEndByte.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// NewEdit describes replacing src[start:oldEnd] with inserted, computing
// the points from src.
func NewEdit(src []byte, start, oldEnd int, inserted []byte) (Edit, error) {
	if start < 0 || start > oldEnd || oldEnd > len(src) {
		return Edit{}, &InputError{Op: "edit", Offset: start, Err: fmt.Errorf("range [%d, %d) of %d bytes: %w", start, oldEnd, len(src), ErrInvalidEdit)}
	}
	startLen := lengthForText(src[:start])
	oldEndLen := startLen.add(lengthForText(src[start:oldEnd]))
	newEndLen := startLen.add(lengthForText(inserted))
	return Edit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  newEndLen.bytes,
		StartPoint:  startLen.extent,
		OldEndPoint: oldEndLen.extent,
		NewEndPoint: newEndLen.extent,
	}, nil
}

func (e Edit) validate(n int) error {
	if e.StartByte < 0 || e.StartByte > e.OldEndByte || e.OldEndByte > n || e.NewEndByte < e.StartByte {
		return &InputError{
			Op:     "edit",
			Offset: e.StartByte,
			Err:    fmt.Errorf("start %d, old end %d, new end %d on %d bytes: %w", e.StartByte, e.OldEndByte, e.NewEndByte, n, ErrInvalidEdit),
		}
	}
	return nil
}

func (e Edit) lengths() editLengths {
	return editLengths{
		start:  lengthOf(e.StartByte, e.StartPoint),
		oldEnd: lengthOf(e.OldEndByte, e.OldEndPoint),
		newEnd: lengthOf(e.NewEndByte, e.NewEndPoint),
	}
}

// delta is the change in text length.
func (e Edit) delta() int { return e.NewEndByte - e.OldEndByte }

func (e Edit) String() string {
	return fmt.Sprintf("edit [%d, %d) -> [%d, %d)", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte)
}

// Pending is a tree with a queue of edits waiting for a reparse. Each edit
// is expressed in the coordinates produced by the edits before it.
type Pending struct {
	base  *Tree
	edits []Edit
}

// NewPending starts an empty edit queue on old.
func NewPending(old *Tree) *Pending {
	return &Pending{base: old}
}

// ApplyEdit queues e on old.
func ApplyEdit(old *Tree, e Edit) (*Pending, error) {
	p := NewPending(old)
	if err := p.Add(e); err != nil {
		return nil, err
	}
	return p, nil
}

// Add queues another edit.
func (p *Pending) Add(e Edit) error {
	if err := e.validate(p.Len()); err != nil {
		return err
	}
	p.edits = append(p.edits, e)
	return nil
}

func (p *Pending) Base() *Tree { return p.base }

func (p *Pending) Edits() []Edit { return p.edits }

// Len is the text length after all queued edits.
func (p *Pending) Len() int {
	n := p.base.Len()
	for _, e := range p.edits {
		n += e.delta()
	}
	return n
}

// Tree returns the base tree with every queued edit applied in order.
// With no edits it is the base tree itself.
func (p *Pending) Tree() (*Tree, error) {
	t := p.base
	for _, e := range p.edits {
		var err error
		if t, err = t.Edit(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Coalesced merges the queued edits into one edit on the base tree's text
// that covers every changed byte. ok is false when nothing is queued.
func (p *Pending) Coalesced() (e Edit, ok bool) {
	if len(p.edits) == 0 {
		return Edit{}, false
	}
	e = p.edits[0]
	for _, next := range p.edits[1:] {
		e = coalesce(e, next)
	}
	return e, true
}

// coalesce merges a then b, where b is in the coordinates after a.
func coalesce(a, b Edit) Edit {
	as, ao, an := a.lengths().start, a.lengths().oldEnd, a.lengths().newEnd
	bs, bo, bn := b.lengths().start, b.lengths().oldEnd, b.lengths().newEnd

	// unmap moves a position after a back to the text before a.
	unmap := func(p length) length {
		switch {
		case p.bytes >= an.bytes:
			return ao.add(p.sub(an))
		case p.bytes <= as.bytes:
			return p
		}
		return ao
	}
	// remap moves a position after a into the text after b.
	remap := func(p length) length {
		switch {
		case p.bytes >= bo.bytes:
			return bn.add(p.sub(bo))
		case p.bytes <= bs.bytes:
			return p
		}
		return bn
	}

	start := as
	if bs.bytes < start.bytes {
		start = bs
	}
	oldEnd := ao
	if u := unmap(bo); u.bytes > oldEnd.bytes {
		oldEnd = u
	}
	newEnd := bn
	if m := remap(an); m.bytes > newEnd.bytes {
		newEnd = m
	}
	return Edit{
		StartByte:   start.bytes,
		OldEndByte:  oldEnd.bytes,
		NewEndByte:  newEnd.bytes,
		StartPoint:  start.extent,
		OldEndPoint: oldEnd.extent,
		NewEndPoint: newEnd.extent,
	}
}
