package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/grammar"
	"github.com/dhamidi/yarn/parser"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "grammar",
		Short:        "Inspect the compiled parse table",
		SilenceUsage: true,
	}

	cmd.AddCommand(newGrammarStatsCmd())
	cmd.AddCommand(newGrammarProductionsCmd())
	cmd.AddCommand(newGrammarStateCmd())
	cmd.AddCommand(newGrammarConflictsCmd())
	cmd.AddCommand(newGrammarRecognizeCmd())

	return cmd
}

// loadLanguage compiles the grammar named by args, or returns the
// built-in language.
func loadLanguage(args []string) (*grammar.Language, error) {
	if len(args) == 0 {
		return grammar.Yarn(), nil
	}
	filename, src, err := grammarSource(args)
	if err != nil {
		return nil, err
	}
	return grammar.Build(filename, src, grammar.YarnDirectives())
}

func newGrammarStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [file]",
		Short: "Print symbol, production and state counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := loadLanguage(args)
			if err != nil {
				return err
			}
			fmt.Printf("symbols:     %d (%d terminals)\n", lang.SymbolCount(), lang.TerminalCount())
			fmt.Printf("productions: %d\n", len(lang.Productions()))
			fmt.Printf("states:      %d\n", lang.StateCount())
			fmt.Printf("conflicts:   %d\n", len(lang.Conflicts()))
			return nil
		},
	}
}

func newGrammarProductionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "productions [file]",
		Short: "List the desugared productions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := loadLanguage(args)
			if err != nil {
				return err
			}
			for _, p := range lang.Productions() {
				line := fmt.Sprintf("%4d  %s", p.ID, lang.FormatProduction(p.ID))
				if p.Prec != 0 {
					line += fmt.Sprintf("  [prec %d %s]", p.Prec, p.Assoc)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newGrammarStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <n>",
		Short: "Print the actions and gotos of one parse state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := grammar.Yarn()
			state, err := strconv.Atoi(args[0])
			if err != nil || state < 0 || state >= lang.StateCount() {
				return fmt.Errorf("no state %q (0 to %d)", args[0], lang.StateCount()-1)
			}
			for sym := range grammar.Symbol(lang.SymbolCount()) {
				if lang.IsTerminal(sym) {
					for _, a := range lang.Actions(state, sym) {
						fmt.Printf("%-16q %s\n", lang.Name(sym), lang.FormatAction(a))
					}
					continue
				}
				if to, ok := lang.Goto(state, sym); ok {
					fmt.Printf("%-16s goto %d\n", lang.Name(sym), to)
				}
			}
			return nil
		},
	}
}

func newGrammarConflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts [file]",
		Short: "List the table cells the parser resolves by forking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := loadLanguage(args)
			if err != nil {
				return err
			}
			for _, c := range lang.Conflicts() {
				fmt.Println(c.Describe(lang))
			}
			return nil
		},
	}
}

func newGrammarRecognizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recognize <script>",
		Short: "Check a script's tokens against the grammar with an Earley recognizer",
		Long: `Check a script's tokens against the grammar with an Earley recognizer.

The script is scanned by the incremental parser; its tokens, without
comments and error recovery, are then fed to a recognizer that does
not use the parse table. A disagreement between the two points at a
bug in the table or in error recovery.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			tree, err := parser.New().Parse(context.Background(), parser.Bytes(src))
			if err != nil {
				return err
			}

			var tokens []grammar.Symbol
			var leaves []parser.Node
			for leaf := range tree.RootNode().Leaves() {
				if leaf.IsExtra() || leaf.IsMissing() || leaf.IsError() {
					continue
				}
				tokens = append(tokens, leaf.Symbol())
				leaves = append(leaves, leaf)
			}

			lang := tree.Language()
			ok, furthest := lang.Recognize(tokens)
			hasErrors := tree.RootNode().HasError()
			switch {
			case ok && !hasErrors:
				fmt.Printf("%s: %d tokens accepted\n", args[0], len(tokens))
			case ok:
				fmt.Printf("%s: tokens accepted but the parse tree has errors\n", args[0])
			case furthest < len(leaves):
				leaf := leaves[furthest]
				fmt.Printf("%s:%s: rejected at %q\n", args[0], leaf.StartPoint(), lang.Name(leaf.Symbol()))
			default:
				fmt.Printf("%s: rejected at end of input\n", args[0])
			}
			if ok == hasErrors {
				return fmt.Errorf("recognizer and parser disagree")
			}
			return nil
		},
	}
}
