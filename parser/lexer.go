package parser

import (
	"github.com/dhamidi/yarn/grammar"
)

// token is one scanned terminal. Positions are absolute: the token starts
// at pos+padding and ends size bytes later.
type token struct {
	symbol    grammar.Symbol
	pos       length
	padding   length
	size      length
	lookahead int
	before    LexState
	after     LexState
}

func (t token) start() length { return t.pos.add(t.padding) }
func (t token) end() length   { return t.start().add(t.size) }

const tabWidth = 8

var exprKeywords = []string{
	"true", "false", "null",
	"and", "or", "xor", "not",
	"is", "eq", "neq", "lt", "gt", "lte", "gte",
	"to", "as", "if", "always", "once",
}

var commandKeywords = []string{
	"if", "elseif", "else", "endif",
	"once", "endonce",
	"enum", "endenum", "case",
	"set", "call", "declare",
	"jump", "detour", "return",
}

// Longest operators first.
var operators = []string{
	"<=", ">=", "==", "!=", "&&", "||", "+=", "-=", "*=", "/=", "%=",
	"<", ">", "=", "!", "+", "-", "*", "/", "%", "^", "(", ")", ",", ".",
}

type operator struct {
	text   string
	symbol grammar.Symbol
}

// lexSymbols resolves the terminals the scanner emits.
type lexSymbols struct {
	end, err, comment                            grammar.Symbol
	newline, indent, dedent, blankLine           grammar.Symbol
	text, commandText, hashtagText               grammar.Symbol
	headerKey, headerValue                       grammar.Symbol
	number, str, variable, identifier            grammar.Symbol
	hash, bodyStart, bodyEnd, colon, when        grammar.Symbol
	option, lineGroup, commandOpen, commandClose grammar.Symbol
	lbrace, rbrace                               grammar.Symbol
	exprKeywords, commandKeywords                map[string]grammar.Symbol
	operators                                    []operator
}

func newLexSymbols(lang *grammar.Language) *lexSymbols {
	lit := func(text string) grammar.Symbol {
		s, ok := lang.Literal(text)
		if !ok {
			panic("parser: grammar has no token " + text)
		}
		return s
	}
	ls := &lexSymbols{
		end:          grammar.SymbolEnd,
		err:          grammar.SymbolError,
		comment:      lang.MustSymbol("comment"),
		newline:      lang.MustSymbol("newline"),
		indent:       lang.MustSymbol("indent"),
		dedent:       lang.MustSymbol("dedent"),
		blankLine:    lang.MustSymbol("blank_line"),
		text:         lang.MustSymbol("text"),
		commandText:  lang.MustSymbol("command_text"),
		hashtagText:  lang.MustSymbol("hashtag_text"),
		headerKey:    lang.MustSymbol("header_key"),
		headerValue:  lang.MustSymbol("header_value"),
		number:       lang.MustSymbol("number"),
		str:          lang.MustSymbol("string"),
		variable:     lang.MustSymbol("variable"),
		identifier:   lang.MustSymbol("identifier"),
		hash:         lit("#"),
		bodyStart:    lit("---"),
		bodyEnd:      lit("==="),
		colon:        lit(":"),
		when:         lit("when"),
		option:       lit("->"),
		lineGroup:    lit("=>"),
		commandOpen:  lit("<<"),
		commandClose: lit(">>"),
		lbrace:       lit("{"),
		rbrace:       lit("}"),

		exprKeywords:    map[string]grammar.Symbol{},
		commandKeywords: map[string]grammar.Symbol{},
	}
	for _, kw := range exprKeywords {
		ls.exprKeywords[kw] = lit(kw)
	}
	for _, kw := range commandKeywords {
		ls.commandKeywords[kw] = lit(kw)
	}
	for _, op := range operators {
		ls.operators = append(ls.operators, operator{op, lit(op)})
	}
	return ls
}

// lexer is the context-sensitive scanner. It keeps no state between calls
// to next: everything it needs is in the LexState it is given.
type lexer struct {
	sym *lexSymbols
	c   *cursor

	pos    length
	start  length
	before LexState
	valid  func(grammar.Symbol) bool
}

func newLexer(sym *lexSymbols, in Input) *lexer {
	return &lexer{sym: sym, c: newCursor(in)}
}

// next scans one token at pos. valid reports which terminals the parser
// can accept; only indentation and blank lines depend on it.
func (lx *lexer) next(pos length, st LexState, valid func(grammar.Symbol) bool) (token, error) {
	lx.c.seek(pos)
	lx.pos, lx.start, lx.before, lx.valid = pos, pos, st, valid
	tok := lx.scan(st)
	if lx.c.err != nil {
		return token{}, lx.c.err
	}
	return tok, nil
}

func (lx *lexer) scan(st LexState) token {
	switch st.top() {
	case modeFile:
		return lx.file(st)
	case modeFileHashtag:
		return lx.fileHashtag(st)
	case modeHeaderColon:
		return lx.headerColon(st, modeHeaderValue)
	case modeWhenColon:
		return lx.headerColon(st, modeHeaderWhen)
	case modeHeaderValue:
		return lx.headerValue(st)
	case modeHeaderWhen:
		return lx.headerWhen(st)
	case modeHeaderEnd:
		return lx.headerEnd(st)
	case modeBodyLineStart:
		return lx.bodyLineStart(st)
	case modeBodyContent:
		lx.skipSpaces()
		lx.mark()
		return lx.bodyContent(st)
	case modeHashtag:
		return lx.hashtag(st)
	case modeCommandStart:
		return lx.commandStart(st)
	case modeCommandText:
		return lx.commandText(st)
	case modeCommandExpr:
		return lx.commandExpr(st)
	case modeInterp:
		return lx.interp(st)
	}
	return lx.line(st)
}

func (lx *lexer) mark() { lx.start = lx.c.pos }

func (lx *lexer) emit(sym grammar.Symbol, after LexState) token {
	end := lx.c.pos
	return token{
		symbol:    sym,
		pos:       lx.pos,
		padding:   lx.start.sub(lx.pos),
		size:      end.sub(lx.start),
		lookahead: max(0, lx.c.reach-end.bytes),
		before:    lx.before,
		after:     after,
	}
}

// newlineLen is the size of the line break at the cursor, or 0.
func (lx *lexer) newlineLen() int {
	switch b, ok := lx.c.peek(0); {
	case !ok:
		return 0
	case b == '\n':
		return 1
	case b == '\r':
		if n, ok := lx.c.peek(1); ok && n == '\n' {
			return 2
		}
	}
	return 0
}

func (lx *lexer) atLineEnd() bool { return lx.c.eof() || lx.newlineLen() > 0 }

func (lx *lexer) skipSpaces() {
	for {
		b, ok := lx.c.peek(0)
		if !ok || (b != ' ' && b != '\t') {
			return
		}
		lx.c.advance()
	}
}

func (lx *lexer) toLineEnd() {
	for !lx.atLineEnd() {
		lx.c.advance()
	}
}

func (lx *lexer) comment(st LexState) token {
	lx.toLineEnd()
	return lx.emit(lx.sym.comment, st)
}

func (lx *lexer) errorToLineEnd(after LexState) token {
	lx.toLineEnd()
	return lx.emit(lx.sym.err, after)
}

func (lx *lexer) newline(after LexState) token {
	lx.c.advanceN(lx.newlineLen())
	return lx.emit(lx.sym.newline, after)
}

// lineEnd handles a newline or end of input in any line-level mode.
func (lx *lexer) lineEnd(st LexState, next mode) (token, bool) {
	if lx.newlineLen() > 0 {
		return lx.newline(st.reset(next)), true
	}
	if lx.c.eof() {
		return lx.emit(lx.sym.end, st), true
	}
	return token{}, false
}

func (lx *lexer) file(st LexState) token {
	for {
		b, ok := lx.c.peek(0)
		if !ok || (b != ' ' && b != '\t' && b != '\r' && b != '\n') {
			break
		}
		lx.c.advance()
	}
	lx.mark()
	c := lx.c
	switch {
	case c.eof():
		return lx.emit(lx.sym.end, st)
	case c.hasPrefix("//"):
		return lx.comment(st)
	case c.hasPrefix("---"):
		c.advanceN(3)
		return lx.emit(lx.sym.bodyStart, st.reset(modeBodyLineStart))
	case c.cur() == '#':
		c.advance()
		return lx.emit(lx.sym.hash, st.reset(modeFileHashtag))
	case isIdentStart(c.cur()):
		if lx.scanIdent() == "when" {
			return lx.emit(lx.sym.when, st.reset(modeWhenColon))
		}
		return lx.emit(lx.sym.headerKey, st.reset(modeHeaderColon))
	}
	return lx.errorToLineEnd(st)
}

func (lx *lexer) fileHashtag(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	if lx.scanHashtag() > 0 {
		return lx.emit(lx.sym.hashtagText, st.reset(modeHeaderEnd))
	}
	return lx.headerEnd(st.reset(modeHeaderEnd))
}

func (lx *lexer) headerColon(st LexState, value mode) token {
	lx.skipSpaces()
	lx.mark()
	if tok, ok := lx.lineEnd(st, modeFile); ok {
		return tok
	}
	if lx.c.cur() == ':' {
		lx.c.advance()
		return lx.emit(lx.sym.colon, st.reset(value))
	}
	return lx.errorToLineEnd(st.reset(modeHeaderEnd))
}

func (lx *lexer) headerValue(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	if tok, ok := lx.lineEnd(st, modeFile); ok {
		return tok
	}
	end := lx.c.pos
	for !lx.atLineEnd() {
		b := lx.c.cur()
		lx.c.advance()
		if b != ' ' && b != '\t' {
			end = lx.c.pos
		}
	}
	lx.c.pos = end
	return lx.emit(lx.sym.headerValue, st.reset(modeHeaderEnd))
}

func (lx *lexer) headerWhen(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	if tok, ok := lx.lineEnd(st, modeFile); ok {
		return tok
	}
	return lx.expression(st)
}

func (lx *lexer) headerEnd(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	if tok, ok := lx.lineEnd(st, modeFile); ok {
		return tok
	}
	return lx.errorToLineEnd(st)
}

// probeIndent measures the indentation of the next line with content,
// looking past blank and comment-only lines. The end of the body and the
// end of input count as column 0. blank reports whether the line at the
// cursor is empty.
func (lx *lexer) probeIndent() (n int, blank bool) {
	c := lx.c
	saved := c.pos
	defer func() { c.pos = saved }()
	for first := true; ; first = false {
		n = 0
		for {
			b, ok := c.peek(0)
			if !ok {
				break
			}
			if b == ' ' {
				n++
			} else if b == '\t' {
				n += tabWidth
			} else {
				break
			}
			c.advance()
		}
		if nl := lx.newlineLen(); nl > 0 {
			if first {
				blank = true
			}
			c.advanceN(nl)
			continue
		}
		switch {
		case c.eof():
			return 0, blank
		case c.hasPrefix("//"):
			lx.toLineEnd()
			if lx.c.eof() {
				return 0, blank
			}
			c.advanceN(lx.newlineLen())
			continue
		case c.hasPrefix("==="):
			return 0, blank
		}
		return n, blank
	}
}

// skipBlankLines consumes lines holding only spaces and tabs.
func (lx *lexer) skipBlankLines() {
	c := lx.c
	for {
		saved := c.pos
		lx.skipSpaces()
		nl := lx.newlineLen()
		if nl == 0 {
			c.pos = saved
			return
		}
		c.advanceN(nl)
	}
}

// bodyLineStart applies the off-side rule at the start of a body line.
func (lx *lexer) bodyLineStart(st LexState) token {
	c := lx.c
	if c.pos.extent.Column != 0 {
		lx.skipSpaces()
		switch {
		case c.hasPrefix("//"):
			lx.mark()
			return lx.comment(st)
		case lx.newlineLen() > 0:
			c.advanceN(lx.newlineLen())
		case c.eof():
		default:
			lx.mark()
			return lx.errorToLineEnd(st)
		}
	}

	n, blank := lx.probeIndent()
	if n < st.indent() {
		after := st.popIndent()
		after = after.withMisaligned(after.indent() < n)
		lx.mark()
		return lx.emit(lx.sym.dedent, after)
	}

	if blank && lx.valid(lx.sym.blankLine) {
		lx.mark()
		lx.skipSpaces()
		c.advanceN(lx.newlineLen())
		return lx.emit(lx.sym.blankLine, st)
	}

	lx.skipBlankLines()
	lineStart := c.pos
	lx.skipSpaces()
	lx.mark()
	if c.hasPrefix("//") {
		return lx.comment(st)
	}

	if st.misaligned {
		lx.start = lineStart
		return lx.emit(lx.sym.err, st.withMisaligned(false).reset(modeBodyContent))
	}
	if n > st.indent() && lx.valid(lx.sym.indent) {
		return lx.emit(lx.sym.indent, st.pushIndent(n).reset(modeBodyContent))
	}
	return lx.bodyContent(st)
}

// bodyContent dispatches on the first token of a body line.
func (lx *lexer) bodyContent(st LexState) token {
	c := lx.c
	switch {
	case c.hasPrefix("==="):
		c.advanceN(3)
		return lx.emit(lx.sym.bodyEnd, st.reset(modeFile).clearIndents())
	case c.hasPrefix("->"):
		c.advanceN(2)
		return lx.emit(lx.sym.option, st.reset(modeLine))
	case c.hasPrefix("=>"):
		c.advanceN(2)
		return lx.emit(lx.sym.lineGroup, st.reset(modeLine))
	case c.hasPrefix("<<"):
		c.advanceN(2)
		return lx.emit(lx.sym.commandOpen, st.reset(modeLine).push(modeCommandStart))
	}
	return lx.line(st.reset(modeLine))
}

func (lx *lexer) line(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	if tok, ok := lx.lineEnd(st, modeBodyLineStart); ok {
		return tok
	}
	c := lx.c
	switch {
	case c.cur() == '{':
		c.advance()
		return lx.emit(lx.sym.lbrace, st.push(modeInterp))
	case c.cur() == '}':
		c.advance()
		return lx.emit(lx.sym.err, st)
	case c.cur() == '#':
		c.advance()
		return lx.emit(lx.sym.hash, st.push(modeHashtag))
	case c.hasPrefix("<<"):
		c.advanceN(2)
		return lx.emit(lx.sym.commandOpen, st.push(modeCommandStart))
	case c.hasPrefix("//"):
		return lx.comment(st)
	}
	return lx.textRun(st)
}

// textRun scans dialogue text. Trailing blanks belong to the next token's
// padding unless the run ends at a brace.
func (lx *lexer) textRun(st LexState) token {
	c := lx.c
	end := c.pos
	brace := false
	for !lx.atLineEnd() {
		b := c.cur()
		if b == '{' || b == '}' {
			brace = true
			break
		}
		if b == '#' || c.hasPrefix("<<") || c.hasPrefix("//") {
			break
		}
		c.advance()
		if b == '\\' && !lx.atLineEnd() {
			c.advance()
		}
		if b != ' ' && b != '\t' {
			end = c.pos
		}
	}
	if !brace {
		c.pos = end
	}
	return lx.emit(lx.sym.text, st)
}

func (lx *lexer) hashtag(st LexState) token {
	lx.mark()
	if lx.scanHashtag() > 0 {
		return lx.emit(lx.sym.hashtagText, st.pop())
	}
	return lx.line(st.pop())
}

func (lx *lexer) scanHashtag() int {
	n := 0
	for !lx.atLineEnd() {
		b := lx.c.cur()
		if b == ' ' || b == '\t' || b == '\r' || b == '#' {
			break
		}
		lx.c.advance()
		n++
	}
	return n
}

func (lx *lexer) commandStart(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	c := lx.c
	if c.hasPrefix(">>") {
		c.advanceN(2)
		return lx.emit(lx.sym.commandClose, st.pop())
	}
	if lx.atLineEnd() {
		return lx.line(st)
	}
	if word := lx.peekIdent(); word != "" {
		if kw, ok := lx.sym.commandKeywords[word]; ok {
			c.advanceN(len(word))
			return lx.emit(kw, st.replace(modeCommandExpr))
		}
	}
	return lx.commandText(st.replace(modeCommandText))
}

func (lx *lexer) commandText(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	c := lx.c
	switch {
	case c.hasPrefix(">>"):
		c.advanceN(2)
		return lx.emit(lx.sym.commandClose, st.pop())
	case lx.atLineEnd():
		return lx.line(st)
	case c.cur() == '{':
		c.advance()
		return lx.emit(lx.sym.lbrace, st.push(modeInterp))
	}
	end := c.pos
	for !lx.atLineEnd() && !c.hasPrefix(">>") && c.cur() != '{' {
		b := c.cur()
		c.advance()
		if b == '\\' && !lx.atLineEnd() {
			c.advance()
		}
		if b != ' ' && b != '\t' {
			end = c.pos
		}
	}
	c.pos = end
	return lx.emit(lx.sym.commandText, st)
}

func (lx *lexer) commandExpr(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	c := lx.c
	switch {
	case c.hasPrefix(">>"):
		c.advanceN(2)
		return lx.emit(lx.sym.commandClose, st.pop())
	case lx.atLineEnd():
		return lx.line(st)
	case c.cur() == '{':
		c.advance()
		return lx.emit(lx.sym.lbrace, st.push(modeInterp))
	case c.cur() == '}':
		c.advance()
		return lx.emit(lx.sym.err, st)
	}
	return lx.expression(st)
}

func (lx *lexer) interp(st LexState) token {
	lx.skipSpaces()
	lx.mark()
	c := lx.c
	switch {
	case c.cur() == '}' && !c.eof():
		c.advance()
		return lx.emit(lx.sym.rbrace, st.pop())
	case lx.atLineEnd():
		return lx.line(st)
	}
	return lx.expression(st)
}

// expression scans one expression token at the cursor.
func (lx *lexer) expression(st LexState) token {
	c := lx.c
	b := c.cur()
	switch {
	case isDigit(b):
		for isDigit(c.cur()) {
			c.advance()
		}
		if c.cur() == '.' {
			if d, ok := c.peek(1); ok && isDigit(d) {
				c.advance()
				for isDigit(c.cur()) {
					c.advance()
				}
			}
		}
		return lx.emit(lx.sym.number, st)
	case b == '"':
		c.advance()
		for {
			if lx.atLineEnd() {
				return lx.emit(lx.sym.err, st)
			}
			ch := c.cur()
			c.advance()
			if ch == '"' {
				return lx.emit(lx.sym.str, st)
			}
			if ch == '\\' && !lx.atLineEnd() {
				c.advance()
			}
		}
	case b == '$':
		c.advance()
		if c.eof() || !isIdentStart(c.cur()) {
			return lx.emit(lx.sym.err, st)
		}
		lx.scanIdent()
		return lx.emit(lx.sym.variable, st)
	case isIdentStart(b):
		word := lx.scanIdent()
		if kw, ok := lx.sym.exprKeywords[word]; ok {
			return lx.emit(kw, st)
		}
		return lx.emit(lx.sym.identifier, st)
	}
	for _, op := range lx.sym.operators {
		if c.hasPrefix(op.text) {
			c.advanceN(len(op.text))
			return lx.emit(op.symbol, st)
		}
	}
	c.advance()
	return lx.emit(lx.sym.err, st)
}

func (lx *lexer) scanIdent() string {
	var word []byte
	for {
		b, ok := lx.c.peek(0)
		if !ok || !isIdentPart(b) {
			return string(word)
		}
		word = append(word, b)
		lx.c.advance()
	}
}

func (lx *lexer) peekIdent() string {
	var word []byte
	for i := 0; ; i++ {
		b, ok := lx.c.peek(i)
		if !ok || !isIdentPart(b) || (i == 0 && !isIdentStart(b)) {
			return string(word)
		}
		word = append(word, b)
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Bytes of multi-byte UTF-8 sequences are identifier characters.
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }
