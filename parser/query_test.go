package parser

import (
	"slices"
	"testing"
)

func TestDescendantsLazy(t *testing.T) {
	tree := mustParse(t, editBase)
	root := tree.RootNode()

	total := 0
	tree.Walk(func(Node) bool { total++; return true })

	calls := 0
	for n := range root.Descendants(func(n Node) bool { calls++; return n.Kind() == "header_key" }) {
		if n.Text() != "title" {
			t.Errorf("first header_key = %q, want %q", n.Text(), "title")
		}
		break
	}
	if calls == 0 || calls >= total-1 {
		t.Errorf("predicate ran %d times for a tree of %d nodes", calls, total)
	}
}

func TestDescendantsRestartable(t *testing.T) {
	tree := mustParse(t, editBase)
	options := tree.RootNode().DescendantsOfKind("option")

	count := func() int {
		n := 0
		for range options {
			n++
		}
		return n
	}
	if first, second := count(), count(); first != 2 || second != 2 {
		t.Errorf("option counts = %d, %d, want 2, 2", first, second)
	}
}

func TestDescendantsOfKind(t *testing.T) {
	tree := mustParse(t, editBase)
	var kinds []string
	for n := range tree.RootNode().DescendantsOfKind("node", "set_statement", "variable") {
		kinds = append(kinds, n.Kind())
	}
	want := []string{"node", "variable", "set_statement", "variable", "node"}
	if !slices.Equal(kinds, want) {
		t.Errorf("kinds = %q, want %q", kinds, want)
	}
}

func TestLeaves(t *testing.T) {
	tree := mustParse(t, "title: A\n---\n-> Yes\n    Go on.\n===\n")
	var kinds []string
	for leaf := range tree.RootNode().Leaves() {
		kinds = append(kinds, leaf.Kind())
		if leaf.Kind() == "indent" && leaf.StartByte() != leaf.EndByte() {
			t.Errorf("indent spans [%d, %d), want zero width", leaf.StartByte(), leaf.EndByte())
		}
	}
	if !slices.Contains(kinds, "indent") || !slices.Contains(kinds, "dedent") {
		t.Errorf("leaves %q lack indentation tokens", kinds)
	}
	for _, c := range tree.RootNode().Child(0).ChildByKind("body").Children() {
		if c.Kind() == "indent" || c.Kind() == "dedent" {
			t.Errorf("Children() includes %s", c.Kind())
		}
	}
}

func TestErrorsEmptyOnValidTree(t *testing.T) {
	tree := mustParse(t, editBase)
	for n := range tree.Errors() {
		t.Errorf("unexpected error node %s: %v", n.Kind(), n.Error())
	}
}
