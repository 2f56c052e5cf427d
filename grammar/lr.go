package grammar

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return i/64 < len(b) && b[i/64]&(1<<(uint(i)%64)) != 0 }

// or merges o into b and reports whether b changed.
func (b bitset) or(o bitset) bool {
	changed := false
	for i := range b {
		if n := b[i] | o[i]; n != b[i] {
			b[i] = n
			changed = true
		}
	}
	return changed
}

func (b bitset) clone() bitset { return slices.Clone(b) }

func (b bitset) key(sb *strings.Builder) {
	for _, w := range b {
		sb.WriteString(strconv.FormatUint(w, 36))
		sb.WriteByte(',')
	}
}

// item is an LR(0) core: a production with a dot position.
type item struct {
	prod int
	dot  int
}

// lrState is a canonical LR(1) state: kernel cores with lookahead sets,
// closed over nonkernel items.
type lrState struct {
	kernel []item
	la     map[item]bitset
	order  []item
	next   map[Symbol]int
}

type tableBuilder struct {
	lang     *Language
	byLHS    map[Symbol][]int
	nullable []bool
	first    []bitset
	states   []*lrState
	index    map[string]int
}

func (l *Language) buildTable() error {
	tb := &tableBuilder{
		lang:  l,
		byLHS: map[Symbol][]int{},
		index: map[string]int{},
	}
	for _, p := range l.productions {
		tb.byLHS[p.LHS] = append(tb.byLHS[p.LHS], p.ID)
	}
	for nt := Symbol(l.terminals); int(nt) < len(l.symbols); nt++ {
		if len(tb.byLHS[nt]) == 0 {
			return fmt.Errorf("%w: rule %s has no productions", ErrGrammar, l.Name(nt))
		}
	}
	tb.computeFirst()
	l.nullable = tb.nullable

	startLA := newBitset(l.terminals)
	startLA.set(int(SymbolEnd))
	tb.intern([]item{{prod: 0, dot: 0}}, map[item]bitset{{0, 0}: startLA})
	for i := 0; i < len(tb.states); i++ {
		tb.expandState(i)
	}

	l.actions = make([][][]Action, len(tb.states))
	l.gotos = make([]map[Symbol]int, len(tb.states))
	l.valid = make([]bitset, len(tb.states))
	for i, st := range tb.states {
		tb.fillRow(i, st)
	}
	return nil
}

func (tb *tableBuilder) computeFirst() {
	l := tb.lang
	n := len(l.symbols)
	tb.nullable = make([]bool, n)
	tb.first = make([]bitset, n)
	for s := 0; s < n; s++ {
		tb.first[s] = newBitset(l.terminals)
		if s < l.terminals {
			tb.first[s].set(s)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range l.productions {
			allNullable := true
			for _, s := range p.RHS {
				if tb.first[p.LHS].or(tb.first[s]) {
					changed = true
				}
				if !tb.nullable[s] {
					allNullable = false
					break
				}
			}
			if allNullable && !tb.nullable[p.LHS] {
				tb.nullable[p.LHS] = true
				changed = true
			}
		}
	}
}

// firstOf returns FIRST(seq) and whether seq derives the empty string.
func (tb *tableBuilder) firstOf(seq []Symbol) (bitset, bool) {
	out := newBitset(tb.lang.terminals)
	for _, s := range seq {
		out.or(tb.first[s])
		if !tb.nullable[s] {
			return out, false
		}
	}
	return out, true
}

func (tb *tableBuilder) intern(kernel []item, la map[item]bitset) int {
	slices.SortFunc(kernel, func(a, b item) int {
		if a.prod != b.prod {
			return a.prod - b.prod
		}
		return a.dot - b.dot
	})
	var sb strings.Builder
	for _, it := range kernel {
		fmt.Fprintf(&sb, "%d.%d:", it.prod, it.dot)
		la[it].key(&sb)
		sb.WriteByte(';')
	}
	key := sb.String()
	if id, ok := tb.index[key]; ok {
		return id
	}
	id := len(tb.states)
	tb.index[key] = id
	tb.states = append(tb.states, &lrState{kernel: kernel, la: la, next: map[Symbol]int{}})
	return id
}

// closure adds nonkernel items, propagating lookaheads to a fixpoint.
func (tb *tableBuilder) closure(st *lrState) {
	l := tb.lang
	st.order = slices.Clone(st.kernel)
	queue := slices.Clone(st.kernel)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		rhs := l.productions[it.prod].RHS
		if it.dot >= len(rhs) || l.IsTerminal(rhs[it.dot]) {
			continue
		}
		la, nullable := tb.firstOf(rhs[it.dot+1:])
		if nullable {
			la.or(st.la[it])
		}
		for _, pid := range tb.byLHS[rhs[it.dot]] {
			ni := item{prod: pid}
			cur, ok := st.la[ni]
			if !ok {
				st.la[ni] = la.clone()
				st.order = append(st.order, ni)
				queue = append(queue, ni)
			} else if cur.or(la) {
				queue = append(queue, ni)
			}
		}
	}
}

func (tb *tableBuilder) expandState(id int) {
	st := tb.states[id]
	tb.closure(st)
	l := tb.lang

	var symbols []Symbol
	kernels := map[Symbol][]item{}
	for _, it := range st.order {
		rhs := l.productions[it.prod].RHS
		if it.dot >= len(rhs) {
			continue
		}
		s := rhs[it.dot]
		if _, ok := kernels[s]; !ok {
			symbols = append(symbols, s)
		}
		kernels[s] = append(kernels[s], item{prod: it.prod, dot: it.dot + 1})
	}
	slices.Sort(symbols)
	for _, s := range symbols {
		kernel := kernels[s]
		la := make(map[item]bitset, len(kernel))
		for _, k := range kernel {
			la[k] = st.la[item{prod: k.prod, dot: k.dot - 1}].clone()
		}
		st.next[s] = tb.intern(kernel, la)
	}
}

func (tb *tableBuilder) fillRow(id int, st *lrState) {
	l := tb.lang
	row := make([][]Action, l.terminals)
	l.gotos[id] = map[Symbol]int{}
	for s, target := range st.next {
		if l.IsTerminal(s) {
			row[s] = append(row[s], Action{Kind: ActionShift, State: target})
		} else {
			l.gotos[id][s] = target
		}
	}
	for _, it := range st.order {
		p := l.productions[it.prod]
		if it.dot < len(p.RHS) {
			continue
		}
		la := st.la[it]
		for t := 0; t < l.terminals; t++ {
			if !la.has(t) {
				continue
			}
			if p.ID == 0 && Symbol(t) == SymbolEnd {
				row[t] = append(row[t], Action{Kind: ActionAccept})
				continue
			}
			row[t] = append(row[t], Action{Kind: ActionReduce, Production: p.ID})
		}
	}

	valid := newBitset(l.terminals)
	for t := range row {
		if len(row[t]) > 1 {
			row[t] = l.resolve(Symbol(t), row[t])
			if len(row[t]) > 1 {
				l.conflicts = append(l.conflicts, Conflict{State: id, Lookahead: Symbol(t), Actions: row[t]})
			}
		}
		if len(row[t]) > 0 {
			valid.set(t)
		}
	}
	l.actions[id] = row
	l.valid[id] = valid
}
