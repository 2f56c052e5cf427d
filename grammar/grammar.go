// Package grammar builds the parse tables for Yarn Spinner dialogue scripts.
//
// The language is declared once in yarn.ebnf and verified with
// golang.org/x/exp/ebnf. Directives (precedence, hidden rules, extras) are
// declared in Go. Build desugars the EBNF into plain productions and
// constructs a canonical LR(1) automaton; shift/reduce conflicts that
// precedence cannot resolve are kept as multiple actions for the GLR
// engine in package parser.
package grammar

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"
)

//go:embed yarn.ebnf
var yarnEBNF []byte

// Symbol identifies a terminal or nonterminal. Terminals are numbered
// before nonterminals.
type Symbol int

// Builtin terminals present in every Language.
const (
	SymbolEnd   Symbol = 0
	SymbolError Symbol = 1
)

// Assoc is the associativity of a precedence level.
type Assoc int

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	}
	return "none"
}

// SymbolInfo describes how a symbol appears in syntax trees.
type SymbolInfo struct {
	Name     string
	Terminal bool
	Named    bool
	Visible  bool
	Extra    bool
}

// Production is one desugared grammar rule.
type Production struct {
	ID    int
	LHS   Symbol
	RHS   []Symbol
	Prec  int
	Assoc Assoc
}

// ActionKind is the kind of a parse table action.
type ActionKind int

const (
	ActionShift ActionKind = iota
	ActionReduce
	ActionAccept
)

// Action is one entry of the parse table. State is the target of a shift,
// Production the rule of a reduce.
type Action struct {
	Kind       ActionKind
	State      int
	Production int
}

// Conflict records a table cell that kept more than one action.
type Conflict struct {
	State     int
	Lookahead Symbol
	Actions   []Action
}

// Language is an immutable grammar with its parse table. It is safe for
// concurrent use.
type Language struct {
	symbols     []SymbolInfo
	terminals   int
	named       map[string]Symbol
	literals    map[string]Symbol
	productions []Production
	start       Symbol
	insertable  []Symbol
	tokenPrec   map[Symbol]RulePrec
	nullable    []bool

	actions   [][][]Action
	gotos     []map[Symbol]int
	valid     []bitset
	conflicts []Conflict
}

var (
	yarnOnce sync.Once
	yarnLang *Language
)

// Yarn returns the Yarn Spinner language. It is built on first use.
func Yarn() *Language {
	yarnOnce.Do(func() {
		lang, err := Build("yarn.ebnf", bytes.NewReader(yarnEBNF), YarnDirectives())
		if err != nil {
			panic(fmt.Sprintf("grammar: build yarn: %v", err))
		}
		yarnLang = lang
	})
	return yarnLang
}

// Source returns the embedded EBNF declaration.
func Source() []byte {
	return bytes.Clone(yarnEBNF)
}

// Build parses, verifies and compiles an EBNF grammar.
func Build(filename string, src io.Reader, d Directives) (*Language, error) {
	b, err := desugar(filename, src, d)
	if err != nil {
		return nil, err
	}
	lang := b.language()
	if err := lang.buildTable(); err != nil {
		return nil, err
	}
	return lang, nil
}

func (l *Language) SymbolCount() int   { return len(l.symbols) }
func (l *Language) TerminalCount() int { return l.terminals }
func (l *Language) StateCount() int    { return len(l.actions) }
func (l *Language) Start() Symbol      { return l.start }

func (l *Language) Info(sym Symbol) SymbolInfo {
	if sym < 0 || int(sym) >= len(l.symbols) {
		return SymbolInfo{Name: "?"}
	}
	return l.symbols[sym]
}

// Name returns the node kind of sym.
func (l *Language) Name(sym Symbol) string { return l.Info(sym).Name }

func (l *Language) IsTerminal(sym Symbol) bool { return int(sym) < l.terminals }
func (l *Language) IsNamed(sym Symbol) bool    { return l.Info(sym).Named }
func (l *Language) IsVisible(sym Symbol) bool  { return l.Info(sym).Visible }
func (l *Language) IsExtra(sym Symbol) bool    { return l.Info(sym).Extra }

// Symbol looks up a symbol by node kind. Named symbols shadow literals.
func (l *Language) Symbol(name string) (Symbol, bool) {
	if s, ok := l.named[name]; ok {
		return s, true
	}
	s, ok := l.literals[name]
	return s, ok
}

// Literal looks up the anonymous terminal for a literal token.
func (l *Language) Literal(text string) (Symbol, bool) {
	s, ok := l.literals[text]
	return s, ok
}

// MustSymbol is like Symbol but panics when name is unknown.
func (l *Language) MustSymbol(name string) Symbol {
	s, ok := l.Symbol(name)
	if !ok {
		panic("grammar: unknown symbol " + name)
	}
	return s
}

func (l *Language) Productions() []Production { return l.productions }

func (l *Language) Production(id int) Production { return l.productions[id] }

// Actions returns the table entry for state and terminal.
func (l *Language) Actions(state int, sym Symbol) []Action {
	if state < 0 || state >= len(l.actions) || sym < 0 || !l.IsTerminal(sym) {
		return nil
	}
	return l.actions[state][sym]
}

// HasAction reports whether sym is a valid lookahead in state.
func (l *Language) HasAction(state int, sym Symbol) bool {
	if state < 0 || state >= len(l.valid) || sym < 0 {
		return false
	}
	return l.valid[state].has(int(sym))
}

// Goto returns the successor of state after a nonterminal.
func (l *Language) Goto(state int, sym Symbol) (int, bool) {
	if state < 0 || state >= len(l.gotos) {
		return 0, false
	}
	next, ok := l.gotos[state][sym]
	return next, ok
}

// Expected lists the terminals with an action in state.
func (l *Language) Expected(state int) []Symbol {
	var out []Symbol
	for t := 0; t < l.terminals; t++ {
		if l.HasAction(state, Symbol(t)) {
			out = append(out, Symbol(t))
		}
	}
	return out
}

// Insertable lists the closing tokens that end-of-input recovery may
// insert, in preference order.
func (l *Language) Insertable() []Symbol { return l.insertable }

// Conflicts lists the table cells where the GLR engine forks.
func (l *Language) Conflicts() []Conflict { return l.conflicts }

// FormatAction renders an action for diagnostics.
func (l *Language) FormatAction(a Action) string {
	switch a.Kind {
	case ActionShift:
		return fmt.Sprintf("shift %d", a.State)
	case ActionReduce:
		return "reduce " + l.FormatProduction(a.Production)
	}
	return "accept"
}

// FormatProduction renders a production as "lhs -> a b c".
func (l *Language) FormatProduction(id int) string {
	p := l.productions[id]
	var buf bytes.Buffer
	buf.WriteString(l.Name(p.LHS))
	buf.WriteString(" ->")
	if len(p.RHS) == 0 {
		buf.WriteString(" ε")
	}
	for _, s := range p.RHS {
		buf.WriteByte(' ')
		if l.IsTerminal(s) && !l.IsNamed(s) {
			fmt.Fprintf(&buf, "%q", l.Name(s))
		} else {
			buf.WriteString(l.Name(s))
		}
	}
	return buf.String()
}
