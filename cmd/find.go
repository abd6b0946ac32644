package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cairnfield/tempo/pkg/asciitable"
	"github.com/cairnfield/tempo/pkg/dataset"
	"github.com/cairnfield/tempo/pkg/exitcode"
	"github.com/cairnfield/tempo/pkg/logger"
	"github.com/cairnfield/tempo/pkg/timeunit"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "List files matching a dataset template within a time window",
	RunE:  runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().String("template", "", "Path template, e.g. \"{year}/{month}/data_{hour}{minute}.csv\" (required)")
	findCmd.Flags().String("base-dir", ".", "Root directory the template is resolved against")
	findCmd.Flags().String("start", "", "Window start (RFC3339 or YYYY-MM-DD) (required)")
	findCmd.Flags().String("end", "", "Window end (RFC3339 or YYYY-MM-DD) (required)")
	findCmd.Flags().String("cache-file", "", "Path to a file-info cache to read/write")
	findCmd.Flags().StringSlice("placeholder", nil, "name=regex pairs for user placeholders")
	_ = findCmd.MarkFlagRequired("template")
	_ = findCmd.MarkFlagRequired("start")
	_ = findCmd.MarkFlagRequired("end")
}

func runFind(cmd *cobra.Command, args []string) error {
	tmpl, _ := cmd.Flags().GetString("template")
	baseDir, _ := cmd.Flags().GetString("base-dir")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	cacheFile, _ := cmd.Flags().GetString("cache-file")
	placeholderFlags, _ := cmd.Flags().GetStringSlice("placeholder")

	placeholders, err := parsePlaceholders(placeholderFlags)
	if err != nil {
		logger.Error("invalid --placeholder", logger.Err(err))
		os.Exit(exitcode.ValidationError)
	}

	start, err := timeunit.ToTime(startStr)
	if err != nil {
		logger.Error("invalid --start", logger.Err(err))
		os.Exit(exitcode.ValidationError)
	}
	end, err := timeunit.ToTime(endStr)
	if err != nil {
		logger.Error("invalid --end", logger.Err(err))
		os.Exit(exitcode.ValidationError)
	}

	d, err := dataset.New(baseDir, tmpl, placeholders, nil, cacheFile, logger.WarnLogger{})
	if err != nil {
		logger.Error("failed to compile template", logger.Err(err))
		os.Exit(exitcode.ConfigError)
	}

	files, err := d.Collect(context.Background(), start, end)
	if err != nil {
		logger.Error("find failed", logger.Err(err))
		os.Exit(exitcode.GeneralError)
	}

	if err := d.SaveInfoCache(); err != nil {
		logger.Warn("failed to persist file-info cache", logger.Err(err))
	}

	rows := [][]string{{"path", "start", "end", "size"}}
	for _, fi := range files {
		rows = append(rows, []string{
			fi.Path,
			fi.Times[0].Format("2006-01-02T15:04:05"),
			fi.Times[1].Format("2006-01-02T15:04:05"),
			strconv.FormatInt(fi.Size, 10),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), asciitable.Render(rows))
	return nil
}

func parsePlaceholders(flags []string) (map[string]string, error) {
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		name, regex, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("tempo: malformed --placeholder %q, expected name=regex", f)
		}
		out[name] = regex
	}
	return out, nil
}
