package grammar

import "fmt"

// Earley recognition over the desugared productions. It shares no code
// with the LR table and serves as an independent oracle for it.

type earleyItem struct {
	prod   int
	dot    int
	origin int
}

func (it earleyItem) String() string {
	return fmt.Sprintf("[%d •%d, %d]", it.prod, it.dot, it.origin)
}

// earleySet is the set of items at one chart position.
type earleySet struct {
	items []earleyItem
	seen  map[earleyItem]bool
}

func newEarleySet() *earleySet {
	return &earleySet{seen: map[earleyItem]bool{}}
}

func (s *earleySet) add(it earleyItem) bool {
	if s.seen[it] {
		return false
	}
	s.seen[it] = true
	s.items = append(s.items, it)
	return true
}

// Recognize reports whether tokens (terminal symbols, extras removed) form
// a sentence of the language. When they do not, furthest is the index of
// the first token no item could scan.
func (l *Language) Recognize(tokens []Symbol) (ok bool, furthest int) {
	byLHS := map[Symbol][]int{}
	for _, p := range l.productions {
		byLHS[p.LHS] = append(byLHS[p.LHS], p.ID)
	}

	n := len(tokens)
	chart := make([]*earleySet, n+1)
	for i := range chart {
		chart[i] = newEarleySet()
	}
	chart[0].add(earleyItem{prod: 0})

	for i := 0; i <= n; i++ {
		set := chart[i]
		if len(set.items) == 0 {
			return false, i - 1
		}
		furthest = i
		// items may be added during iteration
		for j := 0; j < len(set.items); j++ {
			it := set.items[j]
			rhs := l.productions[it.prod].RHS
			if it.dot >= len(rhs) {
				l.earleyComplete(chart, i, it)
				continue
			}
			next := rhs[it.dot]
			if l.IsTerminal(next) {
				if i < n && tokens[i] == next {
					chart[i+1].add(earleyItem{prod: it.prod, dot: it.dot + 1, origin: it.origin})
				}
				continue
			}
			for _, pid := range byLHS[next] {
				set.add(earleyItem{prod: pid, origin: i})
			}
			if l.nullable[next] {
				set.add(earleyItem{prod: it.prod, dot: it.dot + 1, origin: it.origin})
			}
		}
	}

	for _, it := range chart[n].items {
		if it.prod == 0 && it.origin == 0 && it.dot == 1 {
			return true, n
		}
	}
	return false, furthest
}

func (l *Language) earleyComplete(chart []*earleySet, pos int, done earleyItem) {
	lhs := l.productions[done.prod].LHS
	origin := chart[done.origin]
	for k := 0; k < len(origin.items); k++ {
		waiting := origin.items[k]
		rhs := l.productions[waiting.prod].RHS
		if waiting.dot < len(rhs) && rhs[waiting.dot] == lhs {
			chart[pos].add(earleyItem{prod: waiting.prod, dot: waiting.dot + 1, origin: waiting.origin})
		}
	}
}
