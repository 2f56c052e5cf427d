package workspace

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dhamidi/yarn/config"
	"github.com/dhamidi/yarn/format"
	"github.com/dhamidi/yarn/parser"
)

const script = `title: Start
tags: intro main
---
Hello, {$name}!
-> Yes
    <<jump Next>>
-> No
    Stop.
<<declare $gold = "s" as string>>
<<enum Mood>>
<<case Happy>>
<<endenum>>
===
title: Next
---
Bye
===
`

func parse(t *testing.T, src string) *parser.Tree {
	t.Helper()
	tree, err := parser.New().Parse(context.Background(), parser.Bytes(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestWorkspaceEdit(t *testing.T) {
	ctx := context.Background()
	ws := New(t.TempDir(), nil)
	if _, err := ws.Open(ctx, "start.yarn", 1, []byte(script)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	hello := strings.Index(script, "Hello")
	doc, err := ws.Edit(ctx, "start.yarn", 2,
		TextEdit{Start: hello, End: hello + len("Hello"), Text: "Howdy"},
		TextEdit{Start: strings.Index(script, "Bye"), End: strings.Index(script, "Bye") + 3, Text: "Farewell"},
	)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	want := strings.Replace(strings.Replace(script, "Hello", "Howdy", 1), "Bye", "Farewell", 1)
	if string(doc.Content) != want {
		t.Fatalf("content =\n%s\nwant\n%s", doc.Content, want)
	}
	if got, full := doc.Tree.String(), parse(t, want).String(); got != full {
		t.Errorf("tree =\n%s\nwant\n%s", got, full)
	}
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}
	if len(doc.Changed) == 0 {
		t.Error("Changed is empty after an edit")
	}
	if ws.Document("start.yarn") != doc {
		t.Error("Document() does not return the latest snapshot")
	}
}

func TestWorkspaceUpdate(t *testing.T) {
	ctx := context.Background()
	ws := New(t.TempDir(), nil)
	first, err := ws.Update(ctx, "a.yarn", []byte(script))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if same, _ := ws.Update(ctx, "a.yarn", []byte(script)); same != first {
		t.Error("Update with unchanged content replaced the document")
	}

	next := strings.Replace(script, "    Stop.\n", "    Stop.\n    Really.\n", 1)
	doc, err := ws.Update(ctx, "a.yarn", []byte(next))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, full := doc.Tree.String(), parse(t, next).String(); got != full {
		t.Errorf("tree =\n%s\nwant\n%s", got, full)
	}
	if doc.Version != first.Version+1 {
		t.Errorf("Version = %d, want %d", doc.Version, first.Version+1)
	}
	if doc.Tree.Stats().Reused == 0 {
		t.Errorf("Stats() = %+v, want reused tokens", doc.Tree.Stats())
	}
}

func TestWorkspaceEditErrors(t *testing.T) {
	ctx := context.Background()
	ws := New(t.TempDir(), nil)
	if _, err := ws.Edit(ctx, "absent.yarn", 1); err == nil {
		t.Error("Edit of an unknown document succeeded")
	}
	if _, err := ws.Open(ctx, "a.yarn", 1, []byte("title: A\n---\n===\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Edit(ctx, "a.yarn", 2, TextEdit{Start: 5, End: 100}); err == nil {
		t.Error("Edit past the end succeeded")
	}
}

func TestDiffBounds(t *testing.T) {
	tests := []struct {
		a, b                  string
		start, oldEnd, newEnd int
	}{
		{"abc", "abc", 3, 3, 3},
		{"abc", "abXc", 2, 2, 3},
		{"abcdef", "abef", 2, 4, 2},
		{"", "xyz", 0, 0, 3},
		{"aaa", "aa", 2, 3, 2},
	}
	for _, tt := range tests {
		start, oldEnd, newEnd := diffBounds([]byte(tt.a), []byte(tt.b))
		if start != tt.start || oldEnd != tt.oldEnd || newEnd != tt.newEnd {
			t.Errorf("diffBounds(%q, %q) = %d, %d, %d, want %d, %d, %d",
				tt.a, tt.b, start, oldEnd, newEnd, tt.start, tt.oldEnd, tt.newEnd)
		}
	}
}

func TestOutline(t *testing.T) {
	symbols := Outline(parse(t, script))
	if len(symbols) != 2 {
		t.Fatalf("got %d symbols, want 2", len(symbols))
	}
	start := symbols[0]
	if start.Name != "Start" || start.Kind != SymbolNode {
		t.Errorf("first symbol = %s %q, want node %q", start.Kind, start.Name, "Start")
	}
	if start.Detail != "intro main" {
		t.Errorf("Detail = %q, want %q", start.Detail, "intro main")
	}

	var got []string
	for _, c := range start.Children {
		got = append(got, c.Kind.String()+" "+c.Name)
		for _, cc := range c.Children {
			got = append(got, "  "+cc.Kind.String()+" "+cc.Name)
		}
	}
	want := []string{"option Yes", "option No", "variable $gold", "enum Mood", "  case Happy"}
	if !slices.Equal(got, want) {
		t.Errorf("children = %q, want %q", got, want)
	}
	if symbols[1].Name != "Next" || len(symbols[1].Children) != 0 {
		t.Errorf("second symbol = %q with %d children", symbols[1].Name, len(symbols[1].Children))
	}
}

func TestFolds(t *testing.T) {
	folds := Folds(parse(t, script))
	want := []FoldingRange{
		{0, 12, "region"},
		{4, 5, "region"},
		{6, 7, "region"},
		{9, 11, "region"},
		{13, 16, "region"},
	}
	for _, w := range want {
		if !slices.Contains(folds, w) {
			t.Errorf("folds %v lack %v", folds, w)
		}
	}
	for _, f := range folds {
		if f.EndLine <= f.StartLine {
			t.Errorf("fold %v spans a single line", f)
		}
	}

	folds = Folds(parse(t, "title: A\n---\n// one\n// two\nHi\n// three\n===\n"))
	if !slices.Contains(folds, FoldingRange{2, 3, "comment"}) {
		t.Errorf("folds %v lack the comment run", folds)
	}
	for _, f := range folds {
		if f.Kind == "comment" && f.StartLine == 5 {
			t.Errorf("single comment line folded: %v", f)
		}
	}
}

func TestTokens(t *testing.T) {
	src := "title: A\n---\nHi {$name}\n===\n"
	tokens := Tokens(parse(t, src))
	if len(tokens) == 0 {
		t.Fatal("no tokens")
	}
	first := tokens[0]
	if first.Class != format.ClassProperty || src[first.Range.StartByte:first.Range.EndByte] != "title" {
		t.Errorf("first token = %s %q, want property %q", first.Class, src[first.Range.StartByte:first.Range.EndByte], "title")
	}
	found := false
	for i, tok := range tokens {
		if i > 0 && tok.Range.StartByte < tokens[i-1].Range.EndByte {
			t.Errorf("token %d overlaps its predecessor", i)
		}
		if tok.Class == format.ClassVariable && src[tok.Range.StartByte:tok.Range.EndByte] == "$name" {
			found = true
		}
	}
	if !found {
		t.Error("no variable token for $name")
	}
}

func TestDiagnostics(t *testing.T) {
	if diags := Diagnostics(parse(t, script)); len(diags) != 0 {
		t.Errorf("valid script has diagnostics: %v", diags)
	}

	diags := Diagnostics(parse(t, "title: A\n---\nBefore\n<<set $x to 1\nAfter\n===\n"))
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if !strings.HasPrefix(diags[0].Message, "syntax error: unexpected newline") {
		t.Errorf("Message = %q", diags[0].Message)
	}

	diags = Diagnostics(parse(t, "title: A\n---\nHello"))
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.Message)
	}
	if want := []string{`missing "newline"`, `missing "==="`}; !slices.Equal(msgs, want) {
		t.Errorf("messages = %q, want %q", msgs, want)
	}
}

func TestNodeAt(t *testing.T) {
	tree := parse(t, script)
	n := NodeAt(tree, strings.Index(script, "Next>>"))
	if n.Kind() != "identifier" || n.Text() != "Next" {
		t.Errorf("NodeAt = %s %q, want identifier %q", n.Kind(), n.Text(), "Next")
	}
	if p := n.Parent(); p.Kind() != "jump_statement" {
		t.Errorf("parent = %s, want jump_statement", p.Kind())
	}
}

func TestFindNode(t *testing.T) {
	ctx := context.Background()
	ws := New(t.TempDir(), nil)
	ws.Open(ctx, "b.yarn", 0, []byte("title: Other\n---\nHi\n===\n"))
	ws.Open(ctx, "a.yarn", 0, []byte(script))

	doc, node, ok := ws.FindNode("Next")
	if !ok {
		t.Fatal("FindNode(Next) found nothing")
	}
	if doc.Path != "a.yarn" || !strings.HasPrefix(node.Text(), "title: Next") {
		t.Errorf("FindNode = %s %q", doc.Path, node.Text())
	}
	if _, _, ok := ws.FindNode("Nowhere"); ok {
		t.Error("FindNode(Nowhere) found a node")
	}
	var paths []string
	for _, d := range ws.Documents() {
		paths = append(paths, d.Path)
	}
	if !slices.Equal(paths, []string{"a.yarn", "b.yarn"}) {
		t.Errorf("Documents() = %q", paths)
	}
}

func TestFileWatcher(t *testing.T) {
	root := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	a := write("a.yarn", "title: A\n---\nHi\n===\n")
	write("notes.txt", "ignored")
	write(".cache/c.yarn", "title: C\n---\n===\n")
	write("build/d.yarn", "title: D\n---\n===\n")

	cfg := config.Default()
	cfg.Workspace.Exclude = []string{"build"}
	ws := New(root, cfg)

	var changes []string
	fw := NewFileWatcher(ws, func(path string, doc *Document) {
		rel, _ := filepath.Rel(root, path)
		if doc == nil {
			rel = "-" + rel
		}
		changes = append(changes, rel)
	})

	fw.Scan()
	if !slices.Equal(changes, []string{"a.yarn"}) {
		t.Fatalf("changes = %q, want [a.yarn]", changes)
	}

	fw.Scan()
	if len(changes) != 1 {
		t.Errorf("unchanged files were rescanned: %q", changes)
	}

	write("a.yarn", "title: A\n---\nHello\n===\n")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(a, later, later); err != nil {
		t.Fatal(err)
	}
	fw.Scan()
	if doc := ws.Document(a); doc == nil || !strings.Contains(string(doc.Content), "Hello") {
		t.Errorf("document was not updated: %v", doc)
	}

	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	fw.Scan()
	if ws.Document(a) != nil {
		t.Error("removed file still has a document")
	}
	if want := []string{"a.yarn", "a.yarn", "-a.yarn"}; !slices.Equal(changes, want) {
		t.Errorf("changes = %q, want %q", changes, want)
	}
}

func TestFileWatcherSkipsOwnedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.yarn")
	if err := os.WriteFile(path, []byte("title: A\n---\nOn disk\n===\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws := New(root, nil)
	ctx := context.Background()

	var changes []string
	fw := NewFileWatcher(ws, func(path string, doc *Document) {
		if doc == nil {
			path = "-" + path
		}
		changes = append(changes, path)
	})
	fw.Scan()

	owned := true
	fw.skip = func(string) bool { return owned }
	buffer := "title: A\n---\nIn the editor\n===\n"
	if _, err := ws.Open(ctx, path, 7, []byte(buffer)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	fw.Scan()
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	fw.Scan()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	fw.Scan()

	doc := ws.Document(path)
	if doc == nil || string(doc.Content) != buffer || doc.Version != 7 {
		t.Fatalf("owned document = %v, want the editor buffer at version 7", doc)
	}
	if len(changes) != 1 {
		t.Errorf("changes = %q, want only the first scan", changes)
	}
	if _, err := ws.Edit(ctx, path, 8, TextEdit{Start: 13, End: 15, Text: "On"}); err != nil {
		t.Errorf("Edit after polling: %v", err)
	}

	owned = false
	fw.Scan()
	if ws.Document(path) != nil {
		t.Error("released file deleted from disk still has a document")
	}
}

func TestUpdateVersion(t *testing.T) {
	ws := New(t.TempDir(), nil)
	ctx := context.Background()
	if _, err := ws.Open(ctx, "a.yarn", 3, []byte(script)); err != nil {
		t.Fatal(err)
	}

	same, err := ws.UpdateVersion(ctx, "a.yarn", 9, []byte(script))
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if same.Version != 9 || len(same.Changed) != 0 {
		t.Errorf("unchanged content: Version = %d, Changed = %v, want 9 and none", same.Version, same.Changed)
	}

	next := strings.Replace(script, "Stop.", "Halt.", 1)
	doc, err := ws.UpdateVersion(ctx, "a.yarn", 12, []byte(next))
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if doc.Version != 12 || string(doc.Content) != next {
		t.Errorf("Version = %d, want 12 with the new content", doc.Version)
	}
	if got, want := doc.Tree.String(), parse(t, next).String(); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}

	opened, err := ws.UpdateVersion(ctx, "b.yarn", 4, []byte(script))
	if err != nil || opened.Version != 4 {
		t.Errorf("UpdateVersion on a new path = %v, %v, want version 4", opened, err)
	}
}

func TestFileWatcherStartStop(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.yarn"), []byte("title: A\n---\n===\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Workspace.PollInterval.Duration = time.Millisecond
	ws := New(root, cfg)
	fw := NewFileWatcher(ws, nil)
	fw.Start()
	fw.Stop()
	if len(ws.Documents()) != 1 {
		t.Errorf("got %d documents after the first poll, want 1", len(ws.Documents()))
	}
}
