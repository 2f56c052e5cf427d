// Package parser provides an incremental, error-tolerant parser for Yarn
// Spinner dialogue scripts.
//
// # Overview
//
// The parser turns script text into a concrete syntax tree that covers
// every byte of the input, including text that does not parse. It is
// designed for editors: a script is parsed once and then reparsed after
// each edit, reusing every part of the previous tree the edit could not
// have affected.
//
// # Architecture
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Input     │────▶│   Scanner   │────▶│ GLR engine  │
//	│  (chunks)   │     │  (tokens)   │     │  (subtrees) │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                           ▲                   │
//	                           │ LexState          ▼
//	                    ┌─────────────┐     ┌─────────────┐
//	                    │ previous    │────▶│    Tree     │
//	                    │ tree (reuse)│     │   (Nodes)   │
//	                    └─────────────┘     └─────────────┘
//
// The scanner is context sensitive. Its state is an explicit LexState
// value holding a stack of modes (file, header, body line, raw text,
// command, interpolation) and the stack of indentation levels of the
// enclosing blocks. The scanner keeps nothing else between tokens, so a
// scan can be restarted at any token boundary from the state recorded on
// the token before it.
//
// The engine is driven by the LR(1) table of package grammar. Where the
// table holds more than one action the engine forks; forks whose stacks
// reach the same states are merged and at most MaxForks stacks are kept.
//
// # Parsing
//
//	p := parser.New()
//	tree, err := p.Parse(ctx, parser.Bytes(src))
//	if err != nil {
//	    // only *InputError: the input itself could not be read
//	}
//	for n := range tree.Errors() {
//	    fmt.Println(n.Error())
//	}
//
// Scripts with syntax errors never fail to parse. Tokens the scanner
// cannot classify become ERROR leaves; tokens the grammar rejects are
// wrapped, together with the partial constructs they interrupted, into an
// ERROR node, and parsing resumes at the nearest enclosing construct that
// accepts the input that follows. At end of input, unclosed constructs are
// completed with zero-width MISSING tokens.
//
// # Incremental parsing
//
//	edit, _ := parser.NewEdit(old, 10, 12, []byte("xyz"))
//	pending, err := parser.ApplyEdit(tree, edit)
//	// more edits may be queued with pending.Add
//	next, err := p.Reparse(ctx, pending, parser.Bytes(updated))
//	edited, _ := pending.Tree()
//	for _, r := range parser.ChangedRanges(edited, next) { ... }
//
// Subtrees are positioned relative to their left sibling, so a subtree
// after an edit is shared unchanged by the old and new tree. A subtree is
// reused when it starts where the parser is, was not touched by an edit,
// contains no errors, and was built in the same automaton and scanner
// state. Every token records how many bytes past its end the scanner
// looked at, so an edit just after a token invalidates it too.
//
// # Budgets
//
// WithBudget bounds the number of table actions and tokens a parse may
// spend; cancelling the context has the same effect. Either way the parse
// returns the tree built so far with Incomplete set, never an error.
//
// # Queries
//
// Node is a value type pointing into a Tree. Besides parent, child and
// sibling navigation it offers lazy queries:
//
//	for n := range tree.RootNode().DescendantsOfKind("option") {
//	    ...
//	}
//
// The sequences visit nodes on demand and stop as soon as the caller
// stops ranging.
package parser
