package main

import (
	"context"
	"slices"

	"github.com/dhamidi/yarn/parser"
)

// A REPL session keeps one node open and appends every accepted entry to
// its body, reparsing incrementally.
const (
	replHeader = "title: Repl\n---\n"
	replFooter = "===\n"
)

type session struct {
	parser *parser.Parser
	src    []byte
	tree   *parser.Tree
}

func newSession(ctx context.Context, p *parser.Parser) (*session, error) {
	s := &session{parser: p}
	return s, s.reset(ctx)
}

func (s *session) reset(ctx context.Context) error {
	src := []byte(replHeader + replFooter)
	tree, err := s.parser.Parse(ctx, parser.Bytes(src))
	if err != nil {
		return err
	}
	s.src, s.tree = src, tree
	return nil
}

// attempt is the session with one more entry, not yet accepted.
type attempt struct {
	src        []byte
	tree       *parser.Tree
	start, end int
}

// try inserts entry as new body lines in front of the footer.
func (s *session) try(ctx context.Context, entry string) (*attempt, error) {
	at := len(s.src) - len(replFooter)
	text := entry + "\n"
	e, err := parser.NewEdit(s.src, at, at, []byte(text))
	if err != nil {
		return nil, err
	}
	src := slices.Concat(s.src[:at], []byte(text), s.src[at:])
	tree, err := s.parser.ParseIncremental(ctx, s.tree, parser.Bytes(src), e)
	if err != nil {
		return nil, err
	}
	return &attempt{src: src, tree: tree, start: at, end: at + len(text)}, nil
}

func (s *session) commit(a *attempt) {
	s.src, s.tree = a.src, a.tree
}

// errors returns the syntax errors caused by the entry.
func (a *attempt) errors() []parser.Node {
	var out []parser.Node
	for n := range a.tree.Errors() {
		if n.EndByte() >= a.start {
			out = append(out, n)
		}
	}
	return out
}

// statements returns the body statements the entry produced.
func (a *attempt) statements() []parser.Node {
	var out []parser.Node
	for body := range a.tree.RootNode().DescendantsOfKind("body") {
		for _, n := range body.NamedChildren() {
			if n.StartByte() >= a.start && n.StartByte() < a.end {
				out = append(out, n)
			}
		}
	}
	return out
}
