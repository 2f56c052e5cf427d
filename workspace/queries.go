package workspace

import (
	"fmt"
	"strings"

	"github.com/dhamidi/yarn/format"
	"github.com/dhamidi/yarn/parser"
)

// FoldingRange covers the lines [StartLine, EndLine], zero-based.
type FoldingRange struct {
	StartLine, EndLine int
	Kind               string
}

var foldingKinds = map[string]bool{
	"node":            true,
	"block":           true,
	"if_statement":    true,
	"if_clause":       true,
	"else_if_clause":  true,
	"else_clause":     true,
	"once_statement":  true,
	"enum_statement":  true,
	"option":          true,
	"line_group_item": true,
}

// Folds returns a folding range for every construct spanning more than
// one line, plus runs of consecutive comment lines.
func Folds(tree *parser.Tree) []FoldingRange {
	var folds []FoldingRange
	var comments *FoldingRange
	flush := func() {
		if comments != nil && comments.EndLine > comments.StartLine {
			folds = append(folds, *comments)
		}
		comments = nil
	}

	tree.Walk(func(n parser.Node) bool {
		if n.Kind() == "comment" {
			row := n.StartPoint().Row
			if comments != nil && comments.EndLine == row-1 {
				comments.EndLine = row
			} else {
				flush()
				comments = &FoldingRange{StartLine: row, EndLine: row, Kind: "comment"}
			}
			return true
		}
		if !foldingKinds[n.Kind()] {
			return true
		}
		start, end := n.StartPoint().Row, lastLine(n)
		if end > start {
			folds = append(folds, FoldingRange{StartLine: start, EndLine: end, Kind: "region"})
		}
		return true
	})
	flush()
	return folds
}

// lastLine is the row of the last byte of n.
func lastLine(n parser.Node) int {
	end := n.EndPoint()
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		return end.Row - 1
	}
	return end.Row
}

type SymbolKind int

const (
	SymbolNode SymbolKind = iota
	SymbolOption
	SymbolVariable
	SymbolEnum
	SymbolEnumCase
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolNode:
		return "node"
	case SymbolOption:
		return "option"
	case SymbolVariable:
		return "variable"
	case SymbolEnum:
		return "enum"
	case SymbolEnumCase:
		return "case"
	}
	return "unknown"
}

// Symbol is one entry of a document outline.
type Symbol struct {
	Name   string
	Detail string
	Kind   SymbolKind
	Node   parser.Node
	// Selection is the part of Node that names the symbol.
	Selection parser.Range
	Children  []Symbol
}

// Outline lists the nodes of a script with their options, variable
// declarations and enums nested below them.
func Outline(tree *parser.Tree) []Symbol {
	var symbols []Symbol
	for _, n := range tree.RootNode().NamedChildren() {
		if n.Kind() != "node" {
			continue
		}
		sym := Symbol{Name: "(untitled)", Kind: SymbolNode, Node: n, Selection: n.Range()}
		var tags []string
		for _, h := range n.NamedChildren() {
			if h.Kind() != "header" {
				continue
			}
			key, value := h.ChildByKind("header_key"), h.ChildByKind("header_value")
			switch textOf(key) {
			case "title":
				if !value.IsZero() {
					sym.Name = strings.TrimSpace(value.Text())
					sym.Selection = value.Range()
				}
			case "tags":
				if !value.IsZero() {
					tags = append(tags, strings.Fields(value.Text())...)
				}
			}
		}
		sym.Detail = strings.Join(tags, " ")
		if body := n.ChildByKind("body"); !body.IsZero() {
			sym.Children = statementSymbols(body)
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

func statementSymbols(parent parser.Node) []Symbol {
	var out []Symbol
	for _, n := range parent.NamedChildren() {
		switch n.Kind() {
		case "option", "line_group_item":
			line := n.ChildByKind("dialogue_line")
			sym := Symbol{Name: lineText(line), Kind: SymbolOption, Node: n, Selection: rangeOr(line, n)}
			if block := n.ChildByKind("block"); !block.IsZero() {
				sym.Children = statementSymbols(block)
			}
			out = append(out, sym)
		case "declare_statement":
			v := n.ChildByKind("variable")
			if v.IsZero() {
				continue
			}
			sym := Symbol{Name: v.Text(), Kind: SymbolVariable, Node: n, Selection: v.Range()}
			if typ := n.ChildByKind("identifier"); !typ.IsZero() {
				sym.Detail = typ.Text()
			}
			out = append(out, sym)
		case "enum_statement":
			id := n.ChildByKind("identifier")
			sym := Symbol{Name: textOf(id), Kind: SymbolEnum, Node: n, Selection: rangeOr(id, n)}
			for _, c := range n.NamedChildren() {
				if c.Kind() != "enum_case" {
					continue
				}
				cid := c.ChildByKind("identifier")
				sym.Children = append(sym.Children, Symbol{Name: textOf(cid), Kind: SymbolEnumCase, Node: c, Selection: rangeOr(cid, c)})
			}
			out = append(out, sym)
		case "option_group", "line_group", "block", "if_statement", "if_clause",
			"else_if_clause", "else_clause", "once_statement":
			out = append(out, statementSymbols(n)...)
		}
	}
	return out
}

func textOf(n parser.Node) string {
	if n.IsZero() {
		return ""
	}
	return n.Text()
}

func rangeOr(n, fallback parser.Node) parser.Range {
	if n.IsZero() {
		return fallback.Range()
	}
	return n.Range()
}

// lineText renders a dialogue line without its hashtags, conditions and
// line break.
func lineText(line parser.Node) string {
	if line.IsZero() {
		return ""
	}
	var sb strings.Builder
	for _, c := range line.Children() {
		switch c.Kind() {
		case "text", "interpolation":
			sb.WriteString(c.Text())
		}
	}
	return strings.TrimSpace(sb.String())
}

// Token is a highlighted span of a single line.
type Token struct {
	Range parser.Range
	Class format.Class
}

// Tokens returns the highlighted tokens of a tree in document order.
func Tokens(tree *parser.Tree) []Token {
	var tokens []Token
	for leaf := range tree.RootNode().Leaves() {
		if leaf.StartByte() == leaf.EndByte() || leaf.StartPoint().Row != leaf.EndPoint().Row {
			continue
		}
		class := format.Classify(leaf)
		if class == format.ClassNone {
			continue
		}
		tokens = append(tokens, Token{Range: leaf.Range(), Class: class})
	}
	return tokens
}

// Diagnostic is a syntax error found in a document.
type Diagnostic struct {
	Range   parser.Range
	Message string
}

func Diagnostics(tree *parser.Tree) []Diagnostic {
	var diags []Diagnostic
	for n := range tree.Errors() {
		se := n.Error()
		if se == nil {
			continue
		}
		msg := describe(se)
		if n.IsMissing() {
			msg = fmt.Sprintf("missing %q", n.Kind())
		}
		diags = append(diags, Diagnostic{Range: se.Range, Message: msg})
	}
	if tree.Incomplete() {
		end := tree.RootNode().EndPoint()
		diags = append(diags, Diagnostic{
			Range:   parser.Range{StartByte: tree.Len(), EndByte: tree.Len(), StartPoint: end, EndPoint: end},
			Message: "parse stopped early; the rest of the file was not checked",
		})
	}
	return diags
}

// describe renders a syntax error without its position, which the
// diagnostic range already carries.
func describe(se *parser.SyntaxError) string {
	msg := se.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}

// NodeAt returns the smallest named node containing offset.
func NodeAt(tree *parser.Tree, offset int) parser.Node {
	n := tree.RootNode()
	for {
		next := parser.Node{}
		for _, c := range n.NamedChildren() {
			if c.StartByte() <= offset && offset < c.EndByte() {
				next = c
				break
			}
		}
		if next.IsZero() {
			return n
		}
		n = next
	}
}
