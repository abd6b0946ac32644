// Package cmd implements tempo's command-line interface: a thin
// demonstration surface over pkg/dataset, grounded in goneat's cobra root
// command (cmd/root.go).
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cairnfield/tempo/pkg/exitcode"
	"github.com/cairnfield/tempo/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Query and manage time-partitioned file collections",
	Long: `tempo resolves path templates like "{year}/{month}/data_{hour}{minute}.csv"
against a directory tree, caches file metadata, and dispatches work across
the matched files.

Examples:
   tempo find --template "{year}/{month}/data_{hour}{minute}.csv" --start 2024-01-01 --end 2024-02-01
   tempo describe --template "{year}/{month}/data_{hour}{minute}.csv"`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initializeLogger(cmd)
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", logger.Err(err))
		os.Exit(exitcode.GeneralError)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var level logger.Level
	switch strings.ToLower(logLevelStr) {
	case "trace":
		level = logger.TraceLevel
	case "debug":
		level = logger.DebugLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	default:
		level = logger.InfoLevel
	}

	if err := logger.Initialize(logger.Config{
		Level:     level,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "tempo",
	}); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
