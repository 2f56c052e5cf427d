package parser

import (
	"context"
	"slices"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/yarn/grammar"
)

var log = commonlog.GetLogger("yarn.parser")

const (
	DefaultMaxForks    = 8
	DefaultReuseWindow = 512

	// maxReductions bounds the reductions performed for one token.
	maxReductions = 1 << 12
)

// Parser turns Yarn Spinner scripts into syntax trees. A Parser holds no
// per-parse state, so one value may serve any number of parses.
type Parser struct {
	lang        *grammar.Language
	sym         *lexSymbols
	budget      int
	maxForks    int
	reuseWindow int
}

type Option func(*Parser)

// WithBudget stops a parse after steps table actions and scanned tokens.
// The tree returned is marked incomplete. Zero means no limit.
func WithBudget(steps int) Option {
	return func(p *Parser) { p.budget = max(0, steps) }
}

// WithMaxForks bounds the number of stack heads alive at once.
func WithMaxForks(n int) Option {
	return func(p *Parser) { p.maxForks = max(1, n) }
}

// WithReuseWindow sets how many consecutive freshly scanned tokens past
// the last edit a reparse tolerates before it stops looking for reusable
// subtrees.
func WithReuseWindow(tokens int) Option {
	return func(p *Parser) { p.reuseWindow = max(0, tokens) }
}

func New(opts ...Option) *Parser {
	lang := grammar.Yarn()
	p := &Parser{
		lang:        lang,
		sym:         newLexSymbols(lang),
		maxForks:    DefaultMaxForks,
		reuseWindow: DefaultReuseWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Language() *grammar.Language { return p.lang }

// Parse parses in from scratch. The only errors are *InputError values
// from reading in; malformed scripts produce trees with ERROR nodes.
func (p *Parser) Parse(ctx context.Context, in Input) (*Tree, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	return p.run(ctx, in, nil, 0)
}

// Reparse parses in, which must be the text after the pending edits,
// reusing every subtree of the edited tree the edits did not touch. With
// no pending edits the previous root is returned unchanged.
func (p *Parser) Reparse(ctx context.Context, pending *Pending, in Input) (*Tree, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	old, err := pending.Tree()
	if err != nil {
		return nil, err
	}
	if old.incomplete {
		return p.Parse(ctx, in)
	}
	if err := checkLength(in, pending.Len()); err != nil {
		return nil, err
	}
	edit, ok := pending.Coalesced()
	if !ok {
		return &Tree{lang: p.lang, root: old.root, in: in, stats: Stats{Reused: old.root.leaves}}, nil
	}
	return p.run(ctx, in, old, edit.NewEndByte)
}

// ParseIncremental applies edits to old in order and reparses in.
func (p *Parser) ParseIncremental(ctx context.Context, old *Tree, in Input, edits ...Edit) (*Tree, error) {
	pending := NewPending(old)
	for _, e := range edits {
		if err := pending.Add(e); err != nil {
			return nil, err
		}
	}
	return p.Reparse(ctx, pending, in)
}

// parse is the state of one parse call.
type parse struct {
	*Parser
	ctx context.Context
	lx  *lexer

	heads []head
	pos   length
	lex   LexState
	steps int

	reuse       *reuseCursor
	windowStart int
	fresh       int

	stats Stats
}

// lookahead is the next input item: a freshly scanned leaf or a subtree
// of the previous tree.
type lookahead struct {
	tree *subtree
	pos  length // start of the padding
	// symbol is the terminal the table is consulted with; for a reused
	// nonterminal it is the symbol of its first leaf.
	symbol grammar.Symbol
	// reach is the absolute end of the bytes examined to produce the
	// (first) leaf.
	reach  int
	reused bool
}

func (la lookahead) start() length { return la.pos.add(la.tree.padding) }
func (la lookahead) end() length   { return la.pos.add(la.tree.total()) }

func (p *Parser) run(ctx context.Context, in Input, old *Tree, windowStart int) (*Tree, error) {
	ps := &parse{
		Parser:      p,
		ctx:         ctx,
		lx:          newLexer(p.sym, in),
		heads:       []head{{top: &stackEntry{}}},
		lex:         initialLexState(),
		windowStart: windowStart,
	}
	if old != nil {
		ps.reuse = newReuseCursor(old.root)
	}
	root, incomplete, err := ps.loop()
	if err != nil {
		return nil, err
	}
	return &Tree{lang: p.lang, root: root, in: in, incomplete: incomplete, stats: ps.stats}, nil
}

func (ps *parse) loop() (*subtree, bool, error) {
	for {
		if ps.exhausted() {
			log.Debugf("parse stopped at byte %d after %d steps", ps.pos.bytes, ps.steps)
			return ps.rootFrom(ps.heads[0].top.entries(), ps.pos), true, nil
		}
		la, err := ps.next()
		if err != nil {
			return nil, false, err
		}
		root, err := ps.step(la)
		if err != nil {
			return nil, false, err
		}
		if root != nil {
			return root, false, nil
		}
	}
}

func (ps *parse) exhausted() bool {
	if ps.budget > 0 && ps.steps >= ps.budget {
		return true
	}
	return ps.ctx.Err() != nil
}

// next returns a reusable subtree at the current position or scans a
// token.
func (ps *parse) next() (lookahead, error) {
	if t, off := ps.reusable(); t != nil {
		leaf, leafOff := t.firstLeaf(off)
		return lookahead{
			tree:   t,
			pos:    off,
			symbol: leaf.symbol,
			reach:  leafOff.add(leaf.total()).bytes + leaf.lookahead,
			reused: true,
		}, nil
	}
	return ps.scan(ps.validInHeads)
}

func (ps *parse) validInHeads(sym grammar.Symbol) bool {
	for _, h := range ps.heads {
		if ps.lang.HasAction(h.top.state, sym) {
			return true
		}
	}
	return false
}

func (ps *parse) scan(valid func(grammar.Symbol) bool) (lookahead, error) {
	tok, err := ps.lx.next(ps.pos, ps.lex, valid)
	if err != nil {
		return lookahead{}, err
	}
	ps.steps++
	ps.stats.Lexed++
	if ps.reuse != nil && tok.start().bytes >= ps.windowStart {
		ps.fresh++
		if ps.fresh > ps.reuseWindow {
			log.Debugf("no reusable subtree within %d tokens of byte %d, parsing the rest from scratch", ps.reuseWindow, ps.windowStart)
			ps.reuse = nil
		}
	}
	leaf := leafFromToken(tok, ps.lang, ps.heads[0].top.state, len(ps.heads) > 1)
	return lookahead{tree: leaf, pos: ps.pos, symbol: tok.symbol, reach: tok.end().bytes + tok.lookahead}, nil
}

// step feeds la to every head. It returns the root once the input has
// been accepted.
func (ps *parse) step(la lookahead) (*subtree, error) {
	if !la.tree.isLeaf() {
		ps.shiftNode(la)
		return nil, nil
	}
	if la.tree.extra {
		for i := range ps.heads {
			h := &ps.heads[i]
			h.top = h.top.push(h.top.state, la.tree, la.end())
		}
		ps.shift(la)
		return nil, nil
	}

	heads, accepted := ps.feed(ps.heads, la)
	if accepted != nil {
		return ps.acceptRoot(*accepted, la), nil
	}
	if len(heads) == 0 {
		next, root, err := ps.recover(la)
		if err != nil || root != nil || next.tree == nil {
			return root, err
		}
		return ps.step(next)
	}
	ps.heads = mergeHeads(heads, ps.maxForks)
	ps.shift(la)
	return nil, nil
}

// shift moves past la.
func (ps *parse) shift(la lookahead) {
	ps.pos = la.end()
	ps.lex = la.tree.lexAfter
	if la.reused {
		ps.reuse.advance()
		ps.stats.Reused += la.tree.leaves
		ps.fresh = 0
	}
}

// feed performs every reduction la triggers on heads and returns the
// heads that shifted it. Multiple actions fork a head; nodes built while
// more than one head is alive are fragile.
func (ps *parse) feed(heads []head, la lookahead) ([]head, *head) {
	var out []head
	var accepted *head
	queue := slices.Clone(heads)
	for n := 0; len(queue) > 0; n++ {
		h := queue[0]
		queue = queue[1:]
		ps.steps++
		acts := ps.lang.Actions(h.top.state, la.symbol)
		if len(acts) > 1 {
			log.Debugf("fork at byte %d on %q: %d actions", ps.pos.bytes, ps.lang.Name(la.symbol), len(acts))
		}
		fragile := len(heads) > 1 || len(queue) > 0 || len(out) > 0 || len(acts) > 1
		for _, a := range acts {
			switch a.Kind {
			case grammar.ActionShift:
				out = append(out, head{top: h.top.push(a.State, la.tree, la.end()), cost: h.cost})
			case grammar.ActionReduce:
				if n < maxReductions {
					queue = append(queue, head{top: ps.reduce(h.top, a.Production, fragile, la.reach), cost: h.cost})
				}
			case grammar.ActionAccept:
				if accepted == nil {
					done := h
					accepted = &done
				}
			}
		}
	}
	return out, accepted
}

// reduce pops the right-hand side of a production and pushes the new
// node. Extras on top of the stack are re-pushed above it; extras below
// its first child stay where they are.
func (ps *parse) reduce(top *stackEntry, prodID int, fragile bool, reach int) *stackEntry {
	prod := ps.lang.Production(prodID)
	var trailing []*stackEntry
	e := top
	for e.node != nil && e.node.extra {
		trailing = append(trailing, e)
		e = e.prev
	}
	end := e.end
	var children []*subtree
	for n := len(prod.RHS); n > 0 && e.prev != nil; e = e.prev {
		children = append(children, e.node)
		if !e.node.extra {
			n--
		}
	}
	slices.Reverse(children)

	node := newNode(ps.lang, prod.LHS, children, e.state, fragile)
	node.lookahead = max(node.lookahead, reach-end.bytes)
	next, _ := ps.lang.Goto(e.state, prod.LHS)
	out := e.push(next, node, end)
	for i := len(trailing) - 1; i >= 0; i-- {
		out = out.push(out.state, trailing[i].node, trailing[i].end)
	}
	return out
}

// shiftNode pushes a reused nonterminal. When the table does not allow
// it, the reuse cursor moves to the node's first leaf and the next
// lookahead is taken from there.
func (ps *parse) shiftNode(la lookahead) {
	h := ps.heads[0]
	for i := 0; i < maxReductions; i++ {
		acts := ps.lang.Actions(h.top.state, la.symbol)
		if len(acts) != 1 || acts[0].Kind == grammar.ActionAccept {
			break
		}
		ps.steps++
		if acts[0].Kind == grammar.ActionReduce {
			h.top = ps.reduce(h.top, acts[0].Production, false, la.reach)
			continue
		}
		node, off := la.tree, la.pos
		for !node.isLeaf() && node.parseState != h.top.state && ps.reuse.descend() {
			node, off = ps.reuse.node()
		}
		if !node.isLeaf() && node.parseState == h.top.state {
			if next, ok := ps.lang.Goto(h.top.state, node.symbol); ok {
				h.top = h.top.push(next, node, off.add(node.total()))
				ps.heads[0] = h
				ps.shift(lookahead{tree: node, pos: off, reused: true})
				return
			}
		}
		break
	}
	ps.heads[0] = h
	log.Debugf("breaking down %s at byte %d", ps.lang.Name(la.tree.symbol), la.pos.bytes)
	for ps.reuse.descend() {
	}
}

// acceptRoot builds the source_file root spanning the whole text.
func (ps *parse) acceptRoot(h head, la lookahead) *subtree {
	total := la.start()
	nodes := h.top.entries()
	if len(nodes) == 1 {
		n := nodes[0]
		if n.symbol == ps.lang.Start() && n.padding.bytes == 0 && n.total().bytes == total.bytes {
			return n
		}
	}
	return ps.rootFrom(nodes, total)
}

// rootFrom wraps stack nodes into a source_file of the given length.
func (ps *parse) rootFrom(nodes []*subtree, total length) *subtree {
	children := make([]*subtree, 0, len(nodes))
	for _, n := range nodes {
		if n.symbol == ps.lang.Start() && !n.isLeaf() {
			children = append(children, n.children...)
			continue
		}
		children = append(children, n)
	}
	root := newNode(ps.lang, ps.lang.Start(), children, 0, false)
	root.padding = length{}
	root.size = total
	return root
}
