package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/parallax/internal/batch"
)

// batchCmd represents the batch command for processing directories of pairs.
var batchCmd = &cobra.Command{
	Use:   "batch <directory>...",
	Short: "Process directories of stereo pairs in parallel",
	Long: `Discover left/right stereo pairs in the given directories and compute
disparity maps for all of them with a worker pool.

Pairs are matched by filename: "<stem>_left.<ext>" with "<stem>_right.<ext>",
or "left_<stem>.<ext>" with "right_<stem>.<ext>".

Examples:
  parallax batch captures/
  parallax batch captures/ --recursive --workers 8
  parallax batch a/ b/ --report-format json --report-file results.json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyMatcherOverrides(cmd, &cfg.Matcher)
	batchConfig := configToBatchConfig(cmd)

	reportFormat, _ := cmd.Flags().GetString("report-format")
	switch reportFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("invalid report format: %s (must be one of: text, json, csv)", reportFormat)
	}
	reportFile, _ := cmd.Flags().GetString("report-file")
	quiet, _ := cmd.Flags().GetBool("quiet")

	recursive := cfg.Batch.Recursive
	if cmd.Flags().Changed("recursive") {
		recursive, _ = cmd.Flags().GetBool("recursive")
	}

	pairs, err := batch.DiscoverPairs(args, recursive)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return errors.New("no stereo pairs found in the given directories")
	}
	if !quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Processing %d stereo pair(s)\n", len(pairs))
	}

	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress && !quiet {
		batchConfig.Progress = batch.NewMultiProgressCallback(
			batch.NewConsoleProgressCallback(cmd.OutOrStdout(), "Matching"),
			batch.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "batch"),
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := batch.Run(ctx, pairs, batchConfig)
	if err != nil {
		return err
	}

	if reportFile != "" {
		if err := result.SaveReport(reportFormat, reportFile, quiet); err != nil {
			return err
		}
	} else {
		report, err := result.FormatReport(reportFormat)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), report)
	}
	result.PrintStats(quiet)

	if result.Failed > 0 && !batchConfig.ContinueOnError {
		return fmt.Errorf("%d pair(s) failed", result.Failed)
	}
	return nil
}

// configToBatchConfig maps the resolved configuration to batch.Config,
// applying explicitly set CLI flags on top.
func configToBatchConfig(cmd *cobra.Command) batch.Config {
	cfg := GetConfig()

	batchConfig := batch.DefaultConfig()
	batchConfig.Matcher = cfg.Matcher.ToOptions()
	batchConfig.Workers = cfg.Batch.Workers
	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError
	batchConfig.OutputDir = cfg.Output.Directory
	batchConfig.Format = cfg.Output.Format
	batchConfig.Stats = cfg.Output.Stats

	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	if cmd.Flags().Changed("output-dir") {
		batchConfig.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("stats") {
		batchConfig.Stats, _ = cmd.Flags().GetBool("stats")
	}
	return batchConfig
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 0, "pairs processed concurrently (0 = all CPUs)")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().Bool("continue-on-error", true, "keep processing after a pair fails")
	batchCmd.Flags().StringP("format", "f", "gray", "rendering format (gray, color, both)")
	batchCmd.Flags().StringP("output-dir", "o", "output", "directory for disparity images (empty disables)")
	batchCmd.Flags().Bool("stats", false, "compute per-pair disparity statistics")
	batchCmd.Flags().Bool("progress", false, "show a progress bar")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
	batchCmd.Flags().String("report-format", "text", "report format (text, json, csv)")
	batchCmd.Flags().String("report-file", "", "write the report to a file instead of stdout")
	addMatcherFlags(batchCmd)
}

// GetBatchCommand returns the batch command for testing purposes.
func GetBatchCommand() *cobra.Command {
	return batchCmd
}
