package format

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dhamidi/yarn/parser"
)

func parse(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := parser.New().Parse(context.Background(), parser.Bytes(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestSexpEncoder(t *testing.T) {
	tree := parse(t, "title: A\n---\nHi\n===\n")

	var buf bytes.Buffer
	if err := NewSexpEncoder(&buf, false).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `(source_file
  (node
    (header
      (header_key)
      (header_value))
    (body
      (dialogue_line
        (text)))))
`
	if got := buf.String(); got != want {
		t.Errorf("Encode =\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	if err := NewSexpEncoder(&buf, true).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := strings.SplitN(buf.String(), "\n", 2)[0], "(source_file [1:1 - 5:1]"; got != want {
		t.Errorf("first line = %q, want %q", got, want)
	}
}

func TestSexpEncoderMissing(t *testing.T) {
	tree := parse(t, "title: A\n---\nHi")
	var buf bytes.Buffer
	if err := NewSexpEncoder(&buf, false).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `(MISSING "===")`) {
		t.Errorf("output lacks the missing terminator:\n%s", buf.String())
	}
}

func TestLineEncoder(t *testing.T) {
	tree := parse(t, "title: A\n---\nHi\n===\n")
	var buf bytes.Buffer
	if err := NewLineEncoder(&buf).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	tests := []struct {
		index int
		want  string
	}{
		{0, "1:1-1:6\theader_key\t\"title\"\t-"},
		{1, "1:6-1:7\t:\t\":\"\t-"},
		{5, "3:1-3:3\ttext\t\"Hi\"\t-"},
	}
	for _, tt := range tests {
		if tt.index >= len(lines) {
			t.Fatalf("only %d lines:\n%s", len(lines), buf.String())
		}
		if lines[tt.index] != tt.want {
			t.Errorf("line %d = %q, want %q", tt.index, lines[tt.index], tt.want)
		}
	}
}

func TestJSONEncoder(t *testing.T) {
	tree := parse(t, "title: A\n---\nHi\n===\n")
	var buf bytes.Buffer
	if err := NewJSONEncoder(&buf).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var doc struct {
		Root struct {
			Kind     string `json:"kind"`
			Children []struct {
				Kind string `json:"kind"`
			} `json:"children"`
			Span struct {
				End struct {
					Offset int `json:"offset"`
				} `json:"end"`
			} `json:"span"`
		} `json:"root"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Root.Kind != "source_file" {
		t.Errorf("root kind = %q, want %q", doc.Root.Kind, "source_file")
	}
	if len(doc.Root.Children) != 1 || doc.Root.Children[0].Kind != "node" {
		t.Errorf("root children = %+v, want one node", doc.Root.Children)
	}
	if doc.Root.Span.End.Offset != 20 {
		t.Errorf("root end = %d, want 20", doc.Root.Span.End.Offset)
	}
}

func TestHighlightPlainOutput(t *testing.T) {
	src := "title: A\n---\n// note\nHello, {$name}! #tag\n<<set $x to 1 + visited(\"B\")>>\n===\n"
	tree := parse(t, src)
	var buf bytes.Buffer
	if err := NewHighlightEncoder(&buf, nil).Encode(tree); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := buf.String(); got != src {
		t.Errorf("highlight without colors =\n%q\nwant\n%q", got, src)
	}
}

func TestClassify(t *testing.T) {
	src := "title: A\n---\nHi #tag\n<<set $x to 1 + visited(\"B\")>>\n<<wait>>\n===\n"
	tree := parse(t, src)
	got := map[string]Class{}
	for leaf := range tree.RootNode().Leaves() {
		got[leaf.Text()] = Classify(leaf)
	}
	tests := []struct {
		text string
		want Class
	}{
		{"title", ClassProperty},
		{"A", ClassString},
		{"---", ClassMarker},
		{"Hi", ClassNone},
		{"tag", ClassTag},
		{"set", ClassKeyword},
		{"$x", ClassVariable},
		{"1", ClassNumber},
		{"+", ClassOperator},
		{"visited", ClassFunction},
		{`"B"`, ClassString},
		{"wait", ClassCommand},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got[tt.text] != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got[tt.text], tt.want)
			}
		})
	}
}
