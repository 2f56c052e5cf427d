package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/yarn/config"
)

var version = "0.1.0"

// cfg is loaded before any subcommand runs.
var cfg *config.Config

func main() {
	var configPath string
	var verbosity int

	rootCmd := &cobra.Command{
		Use:           "yarn",
		Short:         "Tools for Yarn Spinner dialogue scripts",
		SilenceUsage:  true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.Load(configPath)
			} else {
				cfg, err = config.LoadDir(".")
			}
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Log.Verbosity = verbosity
			}
			var logPath *string
			if cfg.Log.File != "" {
				logPath = &cfg.Log.File
			}
			commonlog.Configure(cfg.Log.Verbosity, logPath)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: nearest yarn.toml or yarn.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newTokensCmd())
	rootCmd.AddCommand(newHighlightCmd())
	rootCmd.AddCommand(newOutlineCmd())
	rootCmd.AddCommand(newFoldCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newExploreCmd())
	rootCmd.AddCommand(newReplCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
