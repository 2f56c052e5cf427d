package grammar

import (
	"fmt"
	"strings"
)

// resolve applies yacc precedence to a table cell. A reduce wins over the
// shift when its rule binds tighter (or equally, for left associative
// levels); the shift wins in the opposite case. Reduces without
// precedence, and reduce/reduce pairs, are kept for the GLR engine.
func (l *Language) resolve(lookahead Symbol, actions []Action) []Action {
	shift := -1
	for i, a := range actions {
		if a.Kind == ActionShift {
			shift = i
		}
	}
	if shift < 0 {
		return actions
	}
	tp, hasTokenPrec := l.tokenPrec[lookahead]

	keepShift := true
	var out []Action
	for i, a := range actions {
		if i == shift || a.Kind != ActionReduce {
			continue
		}
		p := l.productions[a.Production]
		if !hasTokenPrec || p.Prec == 0 {
			out = append(out, a)
			continue
		}
		switch {
		case p.Prec > tp.Prec:
			out = append(out, a)
			keepShift = false
		case p.Prec < tp.Prec:
			// shift wins
		case tp.Assoc == AssocLeft:
			out = append(out, a)
			keepShift = false
		case tp.Assoc == AssocRight:
			// shift wins
		default:
			out = append(out, a)
		}
	}
	for _, a := range actions {
		if a.Kind == ActionAccept {
			out = append(out, a)
		}
	}
	if keepShift {
		out = append([]Action{actions[shift]}, out...)
	}
	return out
}

// Describe renders the conflict using the symbol names of l.
func (c Conflict) Describe(l *Language) string {
	var parts []string
	for _, a := range c.Actions {
		parts = append(parts, l.FormatAction(a))
	}
	return fmt.Sprintf("state %d on %q: %s", c.State, l.Name(c.Lookahead), strings.Join(parts, " | "))
}
