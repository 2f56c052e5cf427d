package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes of an InputError.
var (
	ErrInvalidEdit      = errors.New("invalid edit")
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrInputMismatch    = errors.New("input does not match edited tree")
	ErrInvalidInput     = errors.New("no input")
)

// InputError reports an unusable buffer, read callback or edit. It is the
// only error returned by parse calls; malformed scripts still produce a
// tree.
type InputError struct {
	Op     string
	Offset int
	Err    error
}

func (e *InputError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func inputError(op string, offset int, err error) error {
	var ie *InputError
	if errors.As(err, &ie) {
		return err
	}
	return &InputError{Op: op, Offset: offset, Err: err}
}

// SyntaxError describes an ERROR node.
type SyntaxError struct {
	Range    Range
	Expected []string
	Got      string
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: syntax error", e.Range.StartPoint)
	if e.Got != "" {
		fmt.Fprintf(&sb, ": unexpected %s", e.Got)
	}
	if len(e.Expected) > 0 {
		quoted := make([]string, len(e.Expected))
		for i, s := range e.Expected {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		if len(quoted) > 6 {
			quoted = append(quoted[:6], "...")
		}
		fmt.Fprintf(&sb, ", expected %s", strings.Join(quoted, ", "))
	}
	return sb.String()
}

// errorInfo is recorded on ERROR subtrees.
type errorInfo struct {
	expected []string
	got      string
}
