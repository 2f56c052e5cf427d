package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func newExploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore <file>",
		Short: "Browse the syntax tree of a script interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tree, err := parseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			m := newExploreModel(args[0], tree, lipgloss.NewRenderer(os.Stdout))
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
