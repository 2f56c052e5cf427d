package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const editBase = "title: A\n---\nHello, {$name}!\n-> Yes\n    Go on.\n-> No\n    Stop.\n<<set $x to 1>>\n===\ntitle: B\n---\nBye\n===\n"

// replace returns src with the first occurrence of old replaced by new,
// and the edit describing it.
func replace(t *testing.T, src, old, new string) (string, Edit) {
	t.Helper()
	i := strings.Index(src, old)
	if i < 0 {
		t.Fatalf("%q not in source", old)
	}
	e, err := NewEdit([]byte(src), i, i+len(old), []byte(new))
	if err != nil {
		t.Fatalf("NewEdit: %v", err)
	}
	return src[:i] + new + src[i+len(old):], e
}

func TestReparseMatchesFullParse(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
	}{
		{"change text", "Hello", "Howdy"},
		{"append to line", "Bye", "Bye for now"},
		{"delete block", "    Go on.\n", ""},
		{"extend block", "    Stop.\n", "    Stop.\n    Really.\n"},
		{"change expression", "to 1", "to 12 + 3"},
		{"prepend hashtag", "title: A", "#lang:en\ntitle: A"},
		{"add node", "title: B", "title: C\n---\nC\n===\ntitle: B"},
		{"new option", "-> No", "-> Maybe\n-> No"},
		{"indent line", "Bye", "    Bye"},
		{"break command", "1>>", "1"},
		{"unterminate body", "Bye\n===\n", "Bye"},
		{"delete everything", editBase, ""},
	}
	p := New()
	ctx := context.Background()
	old := mustParse(t, editBase)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, e := replace(t, editBase, tt.old, tt.new)
			got, err := p.ParseIncremental(ctx, old, Bytes(src), e)
			if err != nil {
				t.Fatalf("ParseIncremental: %v", err)
			}
			want := mustParse(t, src)
			if dump(got) != dump(want) {
				t.Errorf("incremental parse =\n%s\nfull parse =\n%s", dump(got), dump(want))
			}
			if got.RootNode().EndByte() != len(src) {
				t.Errorf("root ends at %d, want %d", got.RootNode().EndByte(), len(src))
			}
		})
	}
}

func TestReparseQueuedEdits(t *testing.T) {
	p := New()
	ctx := context.Background()
	old := mustParse(t, editBase)

	src1, e1 := replace(t, editBase, "Hello", "Hi")
	src2, e2 := replace(t, src1, "Stop.", "Halt. Now.")
	src3, e3 := replace(t, src2, "Bye", "Farewell")

	pending, err := ApplyEdit(old, e1)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	for _, e := range []Edit{e2, e3} {
		if err := pending.Add(e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if pending.Len() != len(src3) {
		t.Errorf("Len() = %d, want %d", pending.Len(), len(src3))
	}
	got, err := p.Reparse(ctx, pending, Bytes(src3))
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if want := mustParse(t, src3); dump(got) != dump(want) {
		t.Errorf("incremental parse =\n%s\nfull parse =\n%s", dump(got), dump(want))
	}
}

func TestReparseReusesSubtrees(t *testing.T) {
	var sb strings.Builder
	for i := range 30 {
		fmt.Fprintf(&sb, "title: N%d\n---\nLine %d\n-> Option %d\n    Reply %d\n===\n", i, i, i, i)
	}
	src := sb.String()
	p := New()
	old := mustParse(t, src)

	next, e := replace(t, src, "Line 15", "Line fifteen")
	got, err := p.ParseIncremental(context.Background(), old, Bytes(next), e)
	if err != nil {
		t.Fatalf("ParseIncremental: %v", err)
	}
	if got.Stats().Reused == 0 {
		t.Errorf("Stats() = %+v, want reused leaves", got.Stats())
	}
	if got.Stats().Lexed >= old.Stats().Lexed {
		t.Errorf("lexed %d tokens, full parse lexed %d", got.Stats().Lexed, old.Stats().Lexed)
	}
	if want := mustParse(t, next); dump(got) != dump(want) {
		t.Errorf("incremental parse differs from full parse")
	}
}

func TestReparseWithoutEdits(t *testing.T) {
	tree := mustParse(t, editBase)
	got, err := New().Reparse(context.Background(), NewPending(tree), Bytes(editBase))
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if got.root != tree.root {
		t.Error("root was rebuilt, want the previous root")
	}
	if dump(got) != dump(tree) {
		t.Errorf("reparse =\n%s\nwant\n%s", dump(got), dump(tree))
	}
	if got.Stats().Lexed != 0 {
		t.Errorf("Lexed = %d, want 0", got.Stats().Lexed)
	}
}

func TestPendingCoalesced(t *testing.T) {
	tree := mustParse(t, "title: A\n---\nHi\n===\n")
	tests := []struct {
		name  string
		edits []Edit
		want  Edit
	}{
		{
			"single",
			[]Edit{{StartByte: 3, OldEndByte: 5, NewEndByte: 4}},
			Edit{StartByte: 3, OldEndByte: 5, NewEndByte: 4},
		},
		{
			"disjoint",
			[]Edit{{StartByte: 5, OldEndByte: 5, NewEndByte: 7}, {StartByte: 10, OldEndByte: 12, NewEndByte: 10}},
			Edit{StartByte: 5, OldEndByte: 10, NewEndByte: 10},
		},
		{
			"overlapping",
			[]Edit{{StartByte: 3, OldEndByte: 3, NewEndByte: 6}, {StartByte: 4, OldEndByte: 8, NewEndByte: 4}},
			Edit{StartByte: 3, OldEndByte: 5, NewEndByte: 4},
		},
		{
			"earlier second edit",
			[]Edit{{StartByte: 10, OldEndByte: 12, NewEndByte: 15}, {StartByte: 2, OldEndByte: 4, NewEndByte: 2}},
			Edit{StartByte: 2, OldEndByte: 12, NewEndByte: 13},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := NewPending(tree)
			for _, e := range tt.edits {
				if err := pending.Add(e); err != nil {
					t.Fatalf("Add(%v): %v", e, err)
				}
			}
			got, ok := pending.Coalesced()
			if !ok {
				t.Fatal("Coalesced() reported no edits")
			}
			if got.StartByte != tt.want.StartByte || got.OldEndByte != tt.want.OldEndByte || got.NewEndByte != tt.want.NewEndByte {
				t.Errorf("Coalesced() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, ok := NewPending(tree).Coalesced(); ok {
		t.Error("Coalesced() on an empty queue reported an edit")
	}
}

func TestEditErrors(t *testing.T) {
	src := "title: A\n---\nHi\n===\n"
	tree := mustParse(t, src)

	if _, err := NewEdit([]byte(src), 5, 3, nil); !errors.Is(err, ErrInvalidEdit) {
		t.Errorf("NewEdit backwards = %v, want %v", err, ErrInvalidEdit)
	}
	if _, err := NewEdit([]byte(src), 0, len(src)+1, nil); !errors.Is(err, ErrInvalidEdit) {
		t.Errorf("NewEdit past end = %v, want %v", err, ErrInvalidEdit)
	}
	if _, err := ApplyEdit(tree, Edit{StartByte: 0, OldEndByte: 99, NewEndByte: 0}); !errors.Is(err, ErrInvalidEdit) {
		t.Errorf("ApplyEdit past end = %v, want %v", err, ErrInvalidEdit)
	}
	if _, err := tree.Edit(Edit{StartByte: -1}); !errors.Is(err, ErrInvalidEdit) {
		t.Errorf("Tree.Edit negative = %v, want %v", err, ErrInvalidEdit)
	}

	_, e := replace(t, src, "Hi", "Hello")
	pending, err := ApplyEdit(tree, e)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	_, err = New().Reparse(context.Background(), pending, Bytes(src))
	if !errors.Is(err, ErrInputMismatch) {
		t.Fatalf("Reparse with stale text = %v, want %v", err, ErrInputMismatch)
	}
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Errorf("Reparse error %T is not an *InputError", err)
	}
}

func TestEditMarksChanges(t *testing.T) {
	src := "title: A\n---\nHello\nBye\n===\n"
	tree := mustParse(t, src)
	_, e := replace(t, src, "Hello", "Howdy")
	edited, err := tree.Edit(e)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !edited.root.hasChanges {
		t.Error("edited root is not marked as changed")
	}
	if tree.root.hasChanges {
		t.Error("Edit modified the original tree")
	}
	if edited.Text(edited.RootNode()) != "" {
		t.Error("edited tree has text")
	}
}

func TestChangedRanges(t *testing.T) {
	src := "title: A\n---\nHello\nBye\n===\n"
	tree := mustParse(t, src)

	if got := ChangedRanges(tree, tree); len(got) != 0 {
		t.Errorf("ChangedRanges(t, t) = %v, want none", got)
	}

	next, e := replace(t, src, "Hello", "Howdy")
	pending, err := ApplyEdit(tree, e)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	got, err := New().Reparse(context.Background(), pending, Bytes(next))
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	edited, err := pending.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	ranges := ChangedRanges(edited, got)
	if len(ranges) == 0 {
		t.Fatal("ChangedRanges found nothing")
	}
	line := strings.Index(next, "Howdy")
	for _, r := range ranges {
		if r.StartByte < line || r.EndByte > line+len("Howdy\n") {
			t.Errorf("changed range %v outside the edited line [%d, %d)", r, line, line+len("Howdy\n"))
		}
	}
}
