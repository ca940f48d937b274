package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the release build.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "uartsim",
		Short:         "Cycle-accurate simulation of an APB UART controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(runCommand(), monitorCommand(), signalsCommand(), versionCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uartsim %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
}
