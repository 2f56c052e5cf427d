package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dhamidi/yarn/workspace"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Report syntax errors in every script below a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			ws := workspace.New(root, cfg)
			if err := ws.ScanAll(cmd.Context()); err != nil {
				return err
			}

			files, errs := 0, 0
			for _, doc := range ws.Documents() {
				files++
				name, err := filepath.Rel(root, doc.Path)
				if err != nil {
					name = doc.Path
				}
				for _, d := range workspace.Diagnostics(doc.Tree) {
					fmt.Fprintf(os.Stderr, "%s:%s: %s\n", name, d.Range.StartPoint, d.Message)
					errs++
				}
			}
			fmt.Printf("%d files, %d errors\n", files, errs)
			if errs > 0 {
				return fmt.Errorf("%d syntax errors", errs)
			}
			return nil
		},
	}
}
