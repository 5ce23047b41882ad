package cmd

import (
	"github.com/CompassSecurity/codeleak/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "codeleak",
		Short: "💎 Scan files, diffs and strings for leaked secrets 💎",
		Long:  "Codeleak detects credential-looking strings in source files, diffs and ad-hoc input, and audits hash-only baselines of accepted findings.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(jsonOutput)
			logging.SetLogLevel(verbose)
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewAuditCmd())

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Machine readable JSON log output")

	logging.Setup(false)
}
