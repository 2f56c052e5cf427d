package grammar

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"golang.org/x/exp/ebnf"
)

// ErrGrammar is wrapped by every error returned from Build for a
// grammar that is well formed EBNF but unusable as a parse table source.
var ErrGrammar = errors.New("invalid grammar")

type rawProduction struct {
	lhs  string
	rhs  []string
	rule string
}

// builder turns verified EBNF into numbered symbols and productions.
type builder struct {
	grammar ebnf.Grammar
	dirs    Directives

	terminals    []string
	terminalSet  map[string]bool
	literalSet   map[string]bool
	nonterminals []string
	ntSet        map[string]bool
	hidden       map[string]bool
	prods        []rawProduction
	aux          int
}

func isSyntactic(name string) bool {
	ch, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(ch)
}

func desugar(filename string, src io.Reader, d Directives) (*builder, error) {
	g, err := ebnf.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if err := ebnf.Verify(g, d.Start); err != nil {
		return nil, fmt.Errorf("verify %s: %w", filename, err)
	}

	b := &builder{
		grammar:     g,
		dirs:        d,
		terminalSet: map[string]bool{},
		literalSet:  map[string]bool{},
		ntSet:       map[string]bool{},
		hidden:      map[string]bool{},
	}
	for _, name := range d.Hidden {
		b.hidden[name] = true
	}

	b.addTerminal("end")
	b.addTerminal("ERROR")
	for _, name := range d.Extras {
		if _, ok := g[name]; ok {
			return nil, fmt.Errorf("%w: extra %s must not be declared in the EBNF", ErrGrammar, name)
		}
		b.addTerminal(name)
	}

	// Augmented start rule.
	b.addNonterminal("$start")
	b.hidden["$start"] = true
	b.prods = append(b.prods, rawProduction{lhs: "$start", rhs: []string{d.Start}, rule: "$start"})

	for _, prod := range sortedProductions(g) {
		name := prod.Name.String
		if !isSyntactic(name) {
			continue
		}
		b.addNonterminal(name)
	}
	for _, prod := range sortedProductions(g) {
		name := prod.Name.String
		if !isSyntactic(name) {
			continue
		}
		for _, rhs := range b.expand(name, prod.Expr) {
			b.prods = append(b.prods, rawProduction{lhs: name, rhs: rhs, rule: name})
		}
	}
	return b, nil
}

// sortedProductions returns productions in source order.
func sortedProductions(g ebnf.Grammar) []*ebnf.Production {
	out := make([]*ebnf.Production, 0, len(g))
	for _, p := range g {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *ebnf.Production) int {
		return a.Pos().Offset - b.Pos().Offset
	})
	return out
}

func (b *builder) addTerminal(name string) {
	if b.terminalSet[name] {
		return
	}
	b.terminalSet[name] = true
	b.terminals = append(b.terminals, name)
}

func (b *builder) addLiteral(text string) string {
	key := "\x00" + text
	if !b.literalSet[text] {
		b.literalSet[text] = true
		b.addTerminal(key)
	}
	return key
}

func (b *builder) addNonterminal(name string) {
	if b.ntSet[name] {
		return
	}
	b.ntSet[name] = true
	b.nonterminals = append(b.nonterminals, name)
}

// expand returns the alternative right-hand sides of expr. Groups,
// alternatives and options are distributed; repetitions become hidden
// left-recursive rules.
func (b *builder) expand(rule string, expr ebnf.Expression) [][]string {
	switch x := expr.(type) {
	case nil:
		return [][]string{{}}
	case ebnf.Sequence:
		out := [][]string{{}}
		for _, e := range x {
			suffixes := b.expand(rule, e)
			var next [][]string
			for _, prefix := range out {
				for _, suffix := range suffixes {
					next = append(next, append(slices.Clip(prefix), suffix...))
				}
			}
			out = next
		}
		return out
	case ebnf.Alternative:
		var out [][]string
		for _, e := range x {
			out = append(out, b.expand(rule, e)...)
		}
		return out
	case *ebnf.Group:
		return b.expand(rule, x.Body)
	case *ebnf.Option:
		return append([][]string{{}}, b.expand(rule, x.Body)...)
	case *ebnf.Repetition:
		b.aux++
		name := fmt.Sprintf("_%s_repeat%d", strcase.ToSnake(rule), b.aux)
		b.addNonterminal(name)
		b.hidden[name] = true
		b.prods = append(b.prods, rawProduction{lhs: name, rule: rule})
		for _, rhs := range b.expand(rule, x.Body) {
			b.prods = append(b.prods, rawProduction{lhs: name, rhs: append([]string{name}, rhs...), rule: rule})
		}
		return [][]string{{name}}
	case *ebnf.Name:
		if !isSyntactic(x.String) {
			b.addTerminal(x.String)
		}
		return [][]string{{x.String}}
	case *ebnf.Token:
		return [][]string{{b.addLiteral(x.String)}}
	}
	panic(fmt.Sprintf("grammar: unexpected expression %T in %s", expr, rule))
}

// language numbers the collected symbols: terminals first.
func (b *builder) language() *Language {
	l := &Language{
		terminals: len(b.terminals),
		named:     map[string]Symbol{},
		literals:  map[string]Symbol{},
	}
	ids := map[string]Symbol{}
	contains := func(list []string, s string) bool { return slices.Contains(list, s) }

	for _, key := range b.terminals {
		sym := Symbol(len(l.symbols))
		ids[key] = sym
		info := SymbolInfo{Terminal: true, Visible: true}
		if text, ok := strings.CutPrefix(key, "\x00"); ok {
			info.Name = text
			l.literals[text] = sym
		} else {
			info.Name = key
			info.Named = !contains(b.dirs.Anonymous, key)
			info.Visible = !contains(b.dirs.Invisible, key)
			info.Extra = contains(b.dirs.Extras, key)
			l.named[key] = sym
		}
		if key == "end" {
			info.Named = false
			info.Visible = false
		}
		l.symbols = append(l.symbols, info)
	}
	for _, name := range b.nonterminals {
		sym := Symbol(len(l.symbols))
		ids[name] = sym
		info := SymbolInfo{Name: strcase.ToSnake(name), Named: true, Visible: !b.hidden[name]}
		if name == "$start" {
			info.Name = name
		}
		if info.Visible {
			l.named[info.Name] = sym
		}
		l.symbols = append(l.symbols, info)
	}
	l.start = ids[b.dirs.Start]

	tokenPrec := map[Symbol]RulePrec{}
	for i, level := range b.dirs.Precedence {
		for _, tok := range level.Tokens {
			sym, ok := l.literals[tok]
			if !ok {
				sym, ok = l.named[tok]
			}
			if ok {
				tokenPrec[sym] = RulePrec{Prec: i + 1, Assoc: level.Assoc}
			}
		}
	}

	for i, raw := range b.prods {
		p := Production{ID: i, LHS: ids[raw.lhs]}
		for _, s := range raw.rhs {
			p.RHS = append(p.RHS, ids[s])
		}
		if rp, ok := b.dirs.Rules[raw.lhs]; ok {
			p.Prec, p.Assoc = rp.Prec, rp.Assoc
		} else {
			for j := len(p.RHS) - 1; j >= 0; j-- {
				if int(p.RHS[j]) < l.terminals {
					if tp, ok := tokenPrec[p.RHS[j]]; ok {
						p.Prec, p.Assoc = tp.Prec, tp.Assoc
					}
					break
				}
			}
		}
		l.productions = append(l.productions, p)
	}
	l.tokenPrec = tokenPrec

	for _, tok := range b.dirs.Insertable {
		if sym, ok := l.Symbol(tok); ok && int(sym) < l.terminals {
			l.insertable = append(l.insertable, sym)
		}
	}
	return l
}
