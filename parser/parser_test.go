package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dhamidi/yarn/grammar"
)

func mustParse(t *testing.T, src string, opts ...Option) *Tree {
	t.Helper()
	tree, err := New(opts...).Parse(context.Background(), Bytes(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

// dump renders every visible node with its range, one per line.
func dump(tree *Tree) string {
	var sb strings.Builder
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		fmt.Fprintf(&sb, "%s%s [%d, %d) %s-%s", strings.Repeat("  ", depth), n.Kind(), n.StartByte(), n.EndByte(), n.StartPoint(), n.EndPoint())
		if n.IsMissing() {
			sb.WriteString(" missing")
		}
		if n.IsError() {
			sb.WriteString(" error")
		}
		sb.WriteByte('\n')
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	walk(tree.RootNode(), 0)
	return sb.String()
}

var validScripts = []struct {
	name string
	src  string
}{
	{"hello", "title: Start\n---\nHello, {$name}!\n===\n"},
	{"two nodes", "title: A\n---\nOne\n===\ntitle: B\ntags: x y\n---\nTwo\n===\n"},
	{"hashtags", "#lang:en\ntitle: A\n---\nHi #greeting #loud\n===\n"},
	{"comments", "// file\ntitle: A\n---\nHi // aside\n// alone\n===\n"},
	{"commands", "title: A\n---\n<<set $x to 1>>\n<<declare $y = \"s\" as string>>\n<<call spin(1, $x)>>\n<<jump B>>\n<<wait 2>>\n<<return>>\n===\n"},
	{"if", "title: A\n---\n<<if $x > 1 and not $y>>\nBig\n<<elseif $x == 1>>\nOne\n<<else>>\nSmall\n<<endif>>\n===\n"},
	{"once", "title: A\n---\n<<once if $x>>\nFirst\n<<else>>\nAgain\n<<endonce>>\n===\n"},
	{"options", "title: A\n---\n-> Yes\n    Go on.\n-> No <<if $brave>> #hidden\n    Stop.\n===\n"},
	{"line groups", "title: A\n---\n=> Hey\n=> Hi there\n    Nested\n===\n"},
	{"enum", "title: A\n---\n<<enum Mood>>\n<<case Happy>>\n<<case Sad = 2>>\n<<endenum>>\n===\n"},
	{"expressions", "title: A\n---\n{-(1 + 2) * 3 % 4 >= .Happy}\n===\n"},
	{"when header", "title: A\nwhen: always\n---\nHi\n===\n"},
	{"line condition", "title: A\n---\nHello <<once>>\n===\n"},
}

func TestParseValidScripts(t *testing.T) {
	for _, tt := range validScripts {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			root := tree.RootNode()
			if root.HasError() {
				t.Errorf("tree has errors: %s", tree)
				for n := range tree.Errors() {
					t.Logf("  %v", n.Error())
				}
			}
			if root.Kind() != "source_file" {
				t.Errorf("root kind = %q, want %q", root.Kind(), "source_file")
			}
			if root.StartByte() != 0 || root.EndByte() != len(tt.src) {
				t.Errorf("root range = [%d, %d), want [0, %d)", root.StartByte(), root.EndByte(), len(tt.src))
			}
			if tree.Incomplete() {
				t.Error("tree is incomplete")
			}
		})
	}
}

// TestParseCoversInput checks that visible leaves are non-empty, ordered
// and disjoint, and that every node spans its children.
func TestParseCoversInput(t *testing.T) {
	for _, tt := range validScripts {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			prev := 0
			for leaf := range tree.RootNode().Leaves() {
				if !tree.Language().IsVisible(leaf.Symbol()) {
					continue
				}
				if leaf.EndByte() <= leaf.StartByte() {
					t.Errorf("leaf %s is empty at %d", leaf.Kind(), leaf.StartByte())
				}
				if leaf.StartByte() < prev {
					t.Errorf("leaf %s at %d overlaps previous leaf ending at %d", leaf.Kind(), leaf.StartByte(), prev)
				}
				prev = leaf.EndByte()
			}
			tree.Walk(func(n Node) bool {
				children := n.Children()
				if len(children) == 0 {
					return true
				}
				first, last := children[0], children[len(children)-1]
				if first.StartByte() < n.StartByte() || last.EndByte() > n.EndByte() {
					t.Errorf("%s [%d, %d) does not span its children [%d, %d)", n.Kind(), n.StartByte(), n.EndByte(), first.StartByte(), last.EndByte())
				}
				return true
			})
		})
	}
}

func TestParseMatchesRecognizer(t *testing.T) {
	lang := grammar.Yarn()
	for _, tt := range validScripts {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			var tokens []grammar.Symbol
			for leaf := range tree.RootNode().Leaves() {
				if !leaf.IsExtra() {
					tokens = append(tokens, leaf.Symbol())
				}
			}
			if ok, furthest := lang.Recognize(tokens); !ok {
				t.Errorf("Recognize rejected the tokens at %d", furthest)
			}
		})
	}
}

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"interpolation",
			"title: Start\n---\nHello, {$name}!\n===\n",
			"(source_file (node (header (header_key) (header_value)) (body (dialogue_line (text) (interpolation (expression (variable))) (text)))))",
		},
		{
			"option block",
			"title: Start\n---\n-> Yes\n    Go on.\n-> No\n    Stop.\n===\n",
			"(source_file (node (header (header_key) (header_value)) (body (option_group" +
				" (option (dialogue_line (text)) (block (dialogue_line (text))))" +
				" (option (dialogue_line (text)) (block (dialogue_line (text))))))))",
		},
		{
			"set",
			"title: A\n---\n<<set $x to 1 + 2 * 3>>\n===\n",
			"(source_file (node (header (header_key) (header_value)) (body (set_statement (variable)" +
				" (expression (binary_expression (expression (number))" +
				" (expression (binary_expression (expression (number)) (expression (number))))))))))",
		},
		{
			"jump",
			"title: A\n---\n<<jump {$next}>>\n===\n",
			"(source_file (node (header (header_key) (header_value)) (body (jump_statement (interpolation (expression (variable)))))))",
		},
		{
			"if",
			"title: A\n---\n<<if true>>\nYes\n<<else>>\nNo\n<<endif>>\n===\n",
			"(source_file (node (header (header_key) (header_value)) (body (if_statement" +
				" (if_clause (expression) (dialogue_line (text)))" +
				" (else_clause (dialogue_line (text)))))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			if got := tree.String(); got != tt.want {
				t.Errorf("tree =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tree := mustParse(t, "")
	root := tree.RootNode()
	if root.ChildCount() != 0 {
		t.Errorf("ChildCount() = %d, want 0", root.ChildCount())
	}
	if root.StartByte() != 0 || root.EndByte() != 0 {
		t.Errorf("range = [%d, %d), want [0, 0)", root.StartByte(), root.EndByte())
	}
	if root.HasError() {
		t.Errorf("empty input has errors: %s", tree)
	}
	if got := tree.String(); got != "(source_file)" {
		t.Errorf("String() = %q, want %q", got, "(source_file)")
	}
}

func TestParseNavigation(t *testing.T) {
	src := "title: Start\n---\n-> Yes\n    Go on.\n-> No\n    Stop.\n===\n"
	tree := mustParse(t, src)
	root := tree.RootNode()

	group := root.Child(0).ChildByKind("body").ChildByKind("option_group")
	if group.IsZero() {
		t.Fatalf("no option_group in %s", tree)
	}
	first := group.NamedChild(0)
	second := first.NextNamedSibling()
	if first.Kind() != "option" || second.Kind() != "option" {
		t.Fatalf("options = %q, %q", first.Kind(), second.Kind())
	}
	if got := second.PrevNamedSibling(); got.StartByte() != first.StartByte() {
		t.Errorf("PrevNamedSibling start = %d, want %d", got.StartByte(), first.StartByte())
	}
	if !second.NextNamedSibling().IsZero() {
		t.Errorf("second option has a next named sibling")
	}
	if got := first.Parent(); got.Kind() != "option_group" {
		t.Errorf("Parent().Kind() = %q, want %q", got.Kind(), "option_group")
	}
	if got, want := first.Text(), "-> Yes\n    Go on.\n"; got != want {
		t.Errorf("first option text = %q, want %q", got, want)
	}
	arrow := first.Child(0)
	if arrow.Kind() != "->" || arrow.IsNamed() {
		t.Errorf("first child = %q (named %v), want anonymous %q", arrow.Kind(), arrow.IsNamed(), "->")
	}
	if got, want := second.StartPoint(), (Point{Row: 4, Column: 0}); got != want {
		t.Errorf("second option starts at %v, want %v", got, want)
	}
}

func TestParseRecovery(t *testing.T) {
	src := "title: A\n---\nBefore\n<<set $x to 1\nAfter\n===\n"
	tree := mustParse(t, src)
	root := tree.RootNode()

	if root.StartByte() != 0 || root.EndByte() != len(src) {
		t.Errorf("root range = [%d, %d), want [0, %d)", root.StartByte(), root.EndByte(), len(src))
	}
	var errs []Node
	for n := range tree.Errors() {
		errs = append(errs, n)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %s", len(errs), tree)
	}
	start := strings.Index(src, "<<")
	end := strings.Index(src, "After")
	if errs[0].StartByte() != start || errs[0].EndByte() != end {
		t.Errorf("error range = [%d, %d), want [%d, %d)", errs[0].StartByte(), errs[0].EndByte(), start, end)
	}
	se := errs[0].Error()
	if se == nil || se.Got != "newline" {
		t.Errorf("Error() = %v, want an unexpected newline", se)
	}

	var lines []string
	for n := range root.DescendantsOfKind("dialogue_line") {
		if n.HasError() {
			t.Errorf("dialogue line %q has errors", n.Text())
		}
		lines = append(lines, strings.TrimSpace(n.Text()))
	}
	if strings.Join(lines, ",") != "Before,After" {
		t.Errorf("dialogue lines = %q, want [Before After]", lines)
	}
}

func TestParseRecoveryAtEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line string
	}{
		{"unterminated command", "title: A\n---\nBefore.\n<<wait 2\n", "Before."},
		{"unfinished expression", "title: A\n---\nHello.\n<<set $x to\n", "Hello."},
		{"stray brace after option", "title: A\n---\n-> Yes\n    Go on.\n}\n", "Go on."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			root := tree.RootNode()
			if root.EndByte() != len(tt.src) {
				t.Errorf("root ends at %d, want %d", root.EndByte(), len(tt.src))
			}
			if !root.HasError() {
				t.Fatalf("parsed without errors: %s", tree)
			}

			node := root.NamedChild(0)
			if node.Kind() != "node" {
				t.Fatalf("first child = %s, want node: %s", node.Kind(), tree)
			}
			if node.ChildByKind("header").IsZero() {
				t.Errorf("node lost its header: %s", tree)
			}
			body := strings.Index(tt.src, "---\n") + len("---\n")
			for n := range tree.Errors() {
				if n.StartByte() < body {
					t.Errorf("error %s starts at %d, before the body at %d", n.Kind(), n.StartByte(), body)
				}
			}

			found := false
			for n := range node.DescendantsOfKind("dialogue_line") {
				if strings.TrimSpace(n.Text()) == tt.line && !n.HasError() {
					found = true
				}
			}
			if !found {
				t.Errorf("no intact dialogue line %q: %s", tt.line, tree)
			}
		})
	}
}

func TestParseLexicalError(t *testing.T) {
	src := "title: A\n---\nOops }\n===\n"
	tree := mustParse(t, src)
	if !tree.RootNode().HasError() {
		t.Fatalf("stray brace parsed without errors: %s", tree)
	}
	if got := tree.RootNode().EndByte(); got != len(src) {
		t.Errorf("root ends at %d, want %d", got, len(src))
	}
	found := false
	for n := range tree.Errors() {
		if strings.Contains(n.Text(), "}") {
			found = true
		}
	}
	if !found {
		t.Errorf("no error covers the stray brace: %s", tree)
	}
}

func TestParseMissingAtEnd(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		missing []string
	}{
		{"unterminated body", "title: A\n---\nHello", []string{"newline", "==="}},
		{"unterminated command", "title: A\n---\n<<jump B", []string{">>", "newline", "==="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.src)
			var missing []string
			for n := range tree.Errors() {
				if !n.IsMissing() {
					t.Errorf("unexpected error node %s at %d", n.Kind(), n.StartByte())
					continue
				}
				if n.StartByte() != len(tt.src) || n.EndByte() != len(tt.src) {
					t.Errorf("MISSING %s at [%d, %d), want zero width at %d", n.Kind(), n.StartByte(), n.EndByte(), len(tt.src))
				}
				missing = append(missing, n.Kind())
			}
			if strings.Join(missing, " ") != strings.Join(tt.missing, " ") {
				t.Errorf("missing = %q, want %q", missing, tt.missing)
			}
			if !strings.Contains(tree.String(), `(MISSING "===")`) {
				t.Errorf("String() = %s, want a MISSING ===", tree)
			}
		})
	}
}

func TestParseChunkedInput(t *testing.T) {
	src := []byte(validScripts[5].src)
	chunked := ReadFunc(func(offset int) ([]byte, error) {
		if offset < 0 || offset > len(src) {
			return nil, ErrOffsetOutOfRange
		}
		return src[offset:min(offset+3, len(src))], nil
	})
	tree, err := New().Parse(context.Background(), chunked)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := mustParse(t, string(src))
	if got := dump(tree); got != dump(want) {
		t.Errorf("chunked parse =\n%s\nwant\n%s", got, dump(want))
	}
	if got := tree.RootNode().Child(0).ChildByKind("header").Text(); got != "title: A\n" {
		t.Errorf("header text = %q, want %q", got, "title: A\n")
	}
}

func TestParseBudget(t *testing.T) {
	var sb strings.Builder
	for i := range 50 {
		fmt.Fprintf(&sb, "title: N%d\n---\nLine %d\n===\n", i, i)
	}
	src := sb.String()

	tree := mustParse(t, src, WithBudget(40))
	if !tree.Incomplete() {
		t.Fatal("Incomplete() = false, want true")
	}
	if tree.RootNode().StartByte() != 0 {
		t.Errorf("root starts at %d, want 0", tree.RootNode().StartByte())
	}
	if tree.Len() >= len(src) {
		t.Errorf("partial tree spans %d of %d bytes", tree.Len(), len(src))
	}

	if full := mustParse(t, src); full.Incomplete() {
		t.Error("unbudgeted parse is incomplete")
	}
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree, err := New().Parse(ctx, Bytes("title: A\n---\nHi\n===\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tree.Incomplete() {
		t.Error("Incomplete() = false, want true")
	}
}

func TestParseInputErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	failing := ReadFunc(func(offset int) ([]byte, error) {
		if offset >= 4 {
			return nil, boom
		}
		return []byte("title: A\n")[offset:4], nil
	})
	_, err := New().Parse(context.Background(), failing)
	if !errors.Is(err, boom) {
		t.Fatalf("Parse error = %v, want %v", err, boom)
	}
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("Parse error %T is not an *InputError", err)
	}
	if ie.Offset != 4 {
		t.Errorf("Offset = %d, want 4", ie.Offset)
	}

	tree := mustParse(t, "title: A\n---\nHi\n===\n")
	e := Edit{StartByte: 0, OldEndByte: 0, NewEndByte: 0}
	for name, in := range map[string]Input{"nil": nil, "nil ReadFunc": ReadFunc(nil)} {
		if _, err := New().Parse(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Parse(%s) = %v, want %v", name, err, ErrInvalidInput)
		}
		if _, err := New().ParseIncremental(context.Background(), tree, in, e); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseIncremental(%s) = %v, want %v", name, err, ErrInvalidInput)
		}
	}
}

func TestNodeError(t *testing.T) {
	se := &SyntaxError{
		Range:    Range{StartPoint: Point{Row: 2, Column: 4}},
		Expected: []string{">>"},
		Got:      "newline",
	}
	want := `3:5: syntax error: unexpected newline, expected ">>"`
	if got := se.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNodeJSON(t *testing.T) {
	tree := mustParse(t, "title: A\n---\nHi\n===\n")
	data, err := tree.RootNode().MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	for _, want := range []string{`"kind":"source_file"`, `"kind":"header_value"`, `"text":"Hi"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON lacks %s: %s", want, data)
		}
	}
}
