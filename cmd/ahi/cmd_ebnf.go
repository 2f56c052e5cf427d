package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/spf13/cobra"
	"golang.org/x/exp/ebnf"

	"github.com/dhamidi/yarn/grammar"
)

func newEbnfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ebnf",
		Short:         "EBNF grammar tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newEbnfCheckCmd())

	return cmd
}

func newEbnfCheckCmd() *cobra.Command {
	var startProduction string

	cmd := &cobra.Command{
		Use:           "check [file]",
		Short:         "Parse and verify an EBNF grammar file (default: the built-in yarn grammar)",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, src, err := grammarSource(args)
			if err != nil {
				return err
			}

			g, err := ebnf.Parse(filename, src)
			if err != nil {
				printErrors(err)
				return err
			}

			if err := ebnf.Verify(g, startProduction); err != nil {
				printErrors(err)
				return err
			}

			fmt.Printf("%s: %d productions\n", filename, len(g))
			return nil
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "SourceFile", "start production for verification (if empty, only checks syntax)")

	return cmd
}

// grammarSource opens the grammar named by args, or the built-in one.
func grammarSource(args []string) (string, io.Reader, error) {
	if len(args) == 0 {
		return "yarn.ebnf", bytes.NewReader(grammar.Source()), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, fmt.Errorf("open file: %w", err)
	}
	return args[0], bytes.NewReader(data), nil
}

func printErrors(err error) {
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			fmt.Println(v.Index(i).Interface())
		}
	} else {
		fmt.Println(err)
	}
}
