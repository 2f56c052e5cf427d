package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/format"
	"github.com/dhamidi/yarn/parser"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var includePositions bool
	var budget int

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a script and print its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("budget") {
				cfg.Parser.Budget = budget
			}
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var encoder format.Encoder
			switch outputFormat {
			case "sexp":
				encoder = format.NewSexpEncoder(os.Stdout, includePositions)
			case "json":
				encoder = format.NewJSONEncoder(os.Stdout)
			case "line":
				encoder = format.NewLineEncoder(os.Stdout)
			default:
				return fmt.Errorf("unknown format: %s (expected sexp, json, or line)", outputFormat)
			}
			if err := encoder.Encode(tree); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			printErrors(args[0], tree)
			if tree.Incomplete() {
				fmt.Fprintf(os.Stderr, "%s: parse stopped after %d bytes, budget of %d steps exhausted\n", args[0], tree.Len(), cfg.Parser.Budget)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "sexp", "output format (sexp, json, line)")
	cmd.Flags().BoolVarP(&includePositions, "positions", "p", false, "include node positions in sexp output")
	cmd.Flags().IntVar(&budget, "budget", 0, "stop after this many parser steps (0 for no limit)")

	return cmd
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>",
		Short: "List the tokens of a script, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return format.NewLineEncoder(os.Stdout).Encode(tree)
		},
	}
}

func newHighlightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "highlight <file>",
		Short: "Print a script with syntax highlighting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return format.NewHighlightEncoder(os.Stdout, nil).Encode(tree)
		},
	}
}

func printErrors(name string, tree *parser.Tree) {
	for n := range tree.Errors() {
		fmt.Fprintf(os.Stderr, "%s:%s\n", name, n.Error())
	}
}
