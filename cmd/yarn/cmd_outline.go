package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/workspace"
)

func newOutlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the nodes, options and declarations of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r := lipgloss.NewRenderer(os.Stdout)
			printOutline(r, workspace.Outline(tree), 0)
			return nil
		},
	}
}

func printOutline(r *lipgloss.Renderer, symbols []workspace.Symbol, depth int) {
	kind := r.NewStyle().Faint(true)
	name := r.NewStyle().Bold(true)
	for _, s := range symbols {
		pos := s.Node.StartPoint()
		fmt.Fprintf(os.Stdout, "%s%s %s", strings.Repeat("  ", depth), kind.Render(s.Kind.String()), name.Render(s.Name))
		if s.Detail != "" {
			fmt.Fprintf(os.Stdout, " (%s)", s.Detail)
		}
		fmt.Fprintf(os.Stdout, " %s\n", kind.Render(pos.String()))
		printOutline(r, s.Children, depth+1)
	}
}

func newFoldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fold <file>",
		Short: "Print the foldable line ranges of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, f := range workspace.Folds(tree) {
				fmt.Printf("%d-%d\t%s\n", f.StartLine+1, f.EndLine+1, f.Kind)
			}
			return nil
		},
	}
}
