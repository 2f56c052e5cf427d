package format

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/yarn/parser"
)

// Class is a highlighting category.
type Class string

const (
	ClassNone     Class = ""
	ClassKeyword  Class = "keyword"
	ClassMarker   Class = "marker"
	ClassProperty Class = "property"
	ClassString   Class = "string"
	ClassNumber   Class = "number"
	ClassVariable Class = "variable"
	ClassFunction Class = "function"
	ClassOperator Class = "operator"
	ClassComment  Class = "comment"
	ClassTag      Class = "tag"
	ClassCommand  Class = "command"
	ClassError    Class = "error"
)

var keywordKinds = map[string]bool{
	"if": true, "elseif": true, "else": true, "endif": true,
	"once": true, "endonce": true, "always": true, "when": true,
	"set": true, "call": true, "declare": true, "as": true, "to": true,
	"enum": true, "endenum": true, "case": true,
	"jump": true, "detour": true, "return": true,
	"true": true, "false": true, "null": true,
	"and": true, "or": true, "xor": true, "not": true,
	"is": true, "eq": true, "neq": true, "lt": true, "gt": true, "lte": true, "gte": true,
}

var markerKinds = map[string]bool{
	"---": true, "===": true, "->": true, "=>": true,
	"<<": true, ">>": true, "{": true, "}": true, "#": true,
}

// Classify returns the highlighting class of a token.
func Classify(leaf parser.Node) Class {
	kind := leaf.Kind()
	switch {
	case leaf.IsError():
		return ClassError
	case keywordKinds[kind]:
		return ClassKeyword
	case markerKinds[kind]:
		return ClassMarker
	}
	switch kind {
	case "header_key":
		return ClassProperty
	case "string", "header_value":
		return ClassString
	case "number":
		return ClassNumber
	case "variable":
		return ClassVariable
	case "comment":
		return ClassComment
	case "hashtag_text":
		return ClassTag
	case "command_text":
		return ClassCommand
	case "identifier":
		if p := leaf.Parent(); p.Kind() == "function_call" {
			return ClassFunction
		}
		return ClassNone
	case "text", "newline", "blank_line", "indent", "dedent":
		return ClassNone
	}
	if !leaf.IsNamed() {
		return ClassOperator
	}
	return ClassNone
}

// Theme maps classes to terminal styles.
type Theme map[Class]lipgloss.Style

// DefaultTheme returns the theme used by HighlightEncoder when none is
// given. Styles are created on r so that they follow the color profile of
// its output.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	style := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color)).TabWidth(lipgloss.NoTabConversion)
	}
	return Theme{
		ClassKeyword:  style("5").Bold(true),
		ClassMarker:   style("8"),
		ClassProperty: style("4"),
		ClassString:   style("2"),
		ClassNumber:   style("3"),
		ClassVariable: style("6"),
		ClassFunction: style("4").Bold(true),
		ClassOperator: style("7"),
		ClassComment:  style("8").Italic(true),
		ClassTag:      style("3").Italic(true),
		ClassCommand:  style("6").Italic(true),
		ClassError:    style("1").Underline(true),
	}
}

// HighlightEncoder writes the source of a tree with ANSI styles on its
// tokens. Text between tokens is written unchanged.
type HighlightEncoder struct {
	w     io.Writer
	tree  *parser.Tree
	theme Theme
}

func NewHighlightEncoder(w io.Writer, theme Theme) *HighlightEncoder {
	if theme == nil {
		theme = DefaultTheme(lipgloss.NewRenderer(w))
	}
	return &HighlightEncoder{w: w, theme: theme}
}

func (e *HighlightEncoder) Encode(tree *parser.Tree) error {
	e.tree = tree
	return encodeTo(e.w, e)
}

func (e *HighlightEncoder) MarshalText() ([]byte, error) {
	root := e.tree.RootNode()
	src := root.Text()
	var sb strings.Builder
	pos := 0
	for leaf := range root.Leaves() {
		start, end := leaf.StartByte(), leaf.EndByte()
		if start < pos || end > len(src) || start == end {
			continue
		}
		sb.WriteString(src[pos:start])
		text := src[start:end]
		if style, ok := e.theme[Classify(leaf)]; ok && !strings.ContainsAny(text, "\r\n") {
			text = style.Render(text)
		}
		sb.WriteString(text)
		pos = end
	}
	sb.WriteString(src[pos:])
	return []byte(sb.String()), nil
}
