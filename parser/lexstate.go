package parser

import (
	"fmt"
	"slices"
	"strings"
)

// mode is one scanner context. Modes form a stack: interpolation and
// command modes are pushed on top of the line mode and popped by their
// closing delimiter.
type mode uint8

const (
	modeFile          mode = iota // line starts outside a body
	modeHeaderColon               // after a header key
	modeWhenColon                 // after "when"
	modeHeaderValue               // after ":"
	modeHeaderWhen                // expression after "when:"
	modeHeaderEnd                 // expecting the end of a header line
	modeFileHashtag               // after a file-level "#"
	modeBodyLineStart             // start of a body line: indentation
	modeBodyContent               // indentation handled, content follows
	modeLine                      // raw dialogue text
	modeHashtag                   // after "#" in a line
	modeCommandStart              // after "<<": first word decides
	modeCommandText               // raw command text
	modeCommandExpr               // keyword command: expression tokens
	modeInterp                    // inside { }
)

var modeNames = map[mode]string{
	modeFile:          "file",
	modeHeaderColon:   "header-colon",
	modeWhenColon:     "when-colon",
	modeHeaderValue:   "header-value",
	modeHeaderWhen:    "header-when",
	modeHeaderEnd:     "header-end",
	modeFileHashtag:   "file-hashtag",
	modeBodyLineStart: "body-line-start",
	modeBodyContent:   "body-content",
	modeLine:          "line",
	modeHashtag:       "hashtag",
	modeCommandStart:  "command-start",
	modeCommandText:   "command-text",
	modeCommandExpr:   "command-expr",
	modeInterp:        "interpolation",
}

func (m mode) String() string { return modeNames[m] }

// LexState is the complete scanner state between two tokens. It is an
// immutable value: every transition returns a new LexState and the slices
// are never written after construction.
type LexState struct {
	modes      []mode
	indents    []int
	misaligned bool
}

func initialLexState() LexState {
	return LexState{modes: []mode{modeFile}}
}

func (s LexState) top() mode {
	if len(s.modes) == 0 {
		return modeFile
	}
	return s.modes[len(s.modes)-1]
}

func (s LexState) indent() int {
	if len(s.indents) == 0 {
		return 0
	}
	return s.indents[len(s.indents)-1]
}

func (s LexState) push(m mode) LexState {
	s.modes = append(slices.Clip(s.modes), m)
	return s
}

func (s LexState) pop() LexState {
	if len(s.modes) > 1 {
		s.modes = s.modes[:len(s.modes)-1:len(s.modes)-1]
	}
	return s
}

// replace swaps the top mode.
func (s LexState) replace(m mode) LexState {
	modes := slices.Clone(s.modes)
	if len(modes) == 0 {
		modes = append(modes, m)
	} else {
		modes[len(modes)-1] = m
	}
	s.modes = modes
	return s
}

// reset drops every pushed mode and continues with m.
func (s LexState) reset(m mode) LexState {
	s.modes = []mode{m}
	return s
}

func (s LexState) pushIndent(n int) LexState {
	s.indents = append(slices.Clip(s.indents), n)
	return s
}

func (s LexState) popIndent() LexState {
	if len(s.indents) > 0 {
		s.indents = s.indents[: len(s.indents)-1 : len(s.indents)-1]
	}
	return s
}

func (s LexState) clearIndents() LexState {
	s.indents = nil
	return s
}

func (s LexState) withMisaligned(v bool) LexState {
	s.misaligned = v
	return s
}

// Equal reports whether two states lex identically.
func (s LexState) Equal(o LexState) bool {
	return s.misaligned == o.misaligned &&
		slices.Equal(s.modes, o.modes) &&
		slices.Equal(s.indents, o.indents)
}

func (s LexState) String() string {
	names := make([]string, len(s.modes))
	for i, m := range s.modes {
		names[i] = m.String()
	}
	out := fmt.Sprintf("[%s] indents=%v", strings.Join(names, " "), s.indents)
	if s.misaligned {
		out += " misaligned"
	}
	return out
}
