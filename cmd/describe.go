package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cairnfield/tempo/pkg/dataset"
	"github.com/cairnfield/tempo/pkg/exitcode"
	"github.com/cairnfield/tempo/pkg/logger"
	"github.com/cairnfield/tempo/pkg/report"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print a summary of a dataset's template, resolution, and cache",
	RunE:  runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().String("template", "", "Path template (required)")
	describeCmd.Flags().String("base-dir", ".", "Root directory the template is resolved against")
	describeCmd.Flags().String("cache-file", "", "Path to a file-info cache to report on")
	describeCmd.Flags().StringSlice("placeholder", nil, "name=regex pairs for user placeholders")
	_ = describeCmd.MarkFlagRequired("template")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	tmpl, _ := cmd.Flags().GetString("template")
	baseDir, _ := cmd.Flags().GetString("base-dir")
	cacheFile, _ := cmd.Flags().GetString("cache-file")
	placeholderFlags, _ := cmd.Flags().GetStringSlice("placeholder")

	placeholders, err := parsePlaceholders(placeholderFlags)
	if err != nil {
		logger.Error("invalid --placeholder", logger.Err(err))
		os.Exit(exitcode.ValidationError)
	}

	d, err := dataset.New(baseDir, tmpl, placeholders, nil, cacheFile, logger.WarnLogger{})
	if err != nil {
		logger.Error("failed to compile template", logger.Err(err))
		os.Exit(exitcode.ConfigError)
	}

	cacheCount := -1
	if d.Cache != nil {
		cacheCount = d.Cache.Len()
	}

	out, err := report.Describe(d.Matcher, cacheCount)
	if err != nil {
		logger.Error("failed to render report", logger.Err(err))
		os.Exit(exitcode.GeneralError)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
