package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/format"
	"github.com/dhamidi/yarn/parser"
)

func newEditCmd() *cobra.Command {
	var at string
	var deleteCount int
	var insert string
	var write bool
	var showTree bool

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Apply an edit to a script and reparse it incrementally",
		Long: `Apply an edit to a script and reparse it incrementally.

The edit starts at --at, given as a byte offset or as line:column
(both one-based), removes --delete bytes and inserts --insert. The
command prints the ranges whose syntax changed and how much of the
previous tree was reused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, old, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			start, err := parseOffset(src, at)
			if err != nil {
				return err
			}
			insert = unescape(insert)

			res, err := applyEdit(cmd.Context(), newParser(), src, old, start, start+deleteCount, insert)
			if err != nil {
				return err
			}

			fmt.Printf("edit %s\n", res.edit)
			for _, r := range res.changed {
				fmt.Printf("changed %s\n", r)
			}
			fmt.Printf("lexed %d tokens, reused %d (full parse lexed %d)\n",
				res.tree.Stats().Lexed, res.tree.Stats().Reused, old.Stats().Lexed)
			printErrors(args[0], res.tree)

			if showTree {
				if err := format.NewSexpEncoder(os.Stdout, true).Encode(res.tree); err != nil {
					return err
				}
			}
			if write {
				if err := os.WriteFile(args[0], res.src, 0o644); err != nil {
					return fmt.Errorf("write script: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "start of the edit: byte offset or line:column")
	cmd.Flags().IntVarP(&deleteCount, "delete", "d", 0, "number of bytes to remove")
	cmd.Flags().StringVarP(&insert, "insert", "i", "", `text to insert (\n and \t are unescaped)`)
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the edited script back to the file")
	cmd.Flags().BoolVarP(&showTree, "tree", "t", false, "print the reparsed tree")
	cmd.MarkFlagRequired("at")

	return cmd
}

type editResult struct {
	src     []byte
	edit    parser.Edit
	tree    *parser.Tree
	changed []parser.Range
}

func applyEdit(ctx context.Context, p *parser.Parser, src []byte, old *parser.Tree, start, end int, insert string) (*editResult, error) {
	e, err := parser.NewEdit(src, start, end, []byte(insert))
	if err != nil {
		return nil, err
	}
	pending, err := parser.ApplyEdit(old, e)
	if err != nil {
		return nil, err
	}
	next := make([]byte, 0, len(src)-(end-start)+len(insert))
	next = append(next, src[:start]...)
	next = append(next, insert...)
	next = append(next, src[end:]...)

	tree, err := p.Reparse(ctx, pending, parser.Bytes(next))
	if err != nil {
		return nil, err
	}
	edited, err := pending.Tree()
	if err != nil {
		return nil, err
	}
	return &editResult{src: next, edit: e, tree: tree, changed: parser.ChangedRanges(edited, tree)}, nil
}

// parseOffset accepts a byte offset or a one-based line:column.
func parseOffset(src []byte, at string) (int, error) {
	line, col, ok := strings.Cut(at, ":")
	if !ok {
		n, err := strconv.Atoi(at)
		if err != nil || n < 0 || n > len(src) {
			return 0, fmt.Errorf("invalid offset %q", at)
		}
		return n, nil
	}
	row, err1 := strconv.Atoi(line)
	column, err2 := strconv.Atoi(col)
	if err1 != nil || err2 != nil || row < 1 || column < 1 {
		return 0, fmt.Errorf("invalid position %q", at)
	}
	offset := 0
	for r := 1; r < row; r++ {
		i := strings.IndexByte(string(src[offset:]), '\n')
		if i < 0 {
			return 0, fmt.Errorf("position %q is past the end of the script", at)
		}
		offset += i + 1
	}
	offset += column - 1
	if offset > len(src) {
		return 0, fmt.Errorf("position %q is past the end of the script", at)
	}
	return offset, nil
}

func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`).Replace(s)
}
