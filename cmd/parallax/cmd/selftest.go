package cmd

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/common"
	"github.com/MeKo-Tech/parallax/internal/stats"
	"github.com/MeKo-Tech/parallax/internal/testutil"
)

// selftestCmd represents the selftest command.
var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Verify the stereo matcher against a synthetic pair",
	Long: `Run the full matching pipeline on a synthetic stereo pair with a known
shift and verify that the recovered disparity matches it.

This command checks:
- The pipeline runs end to end with the configured parameters
- The mean recovered disparity matches the synthetic shift
- A reasonable share of pixels survives the consistency check`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyMatcherOverrides(cmd, &cfg.Matcher)

		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		shift, _ := cmd.Flags().GetInt("shift")
		tolerance, _ := cmd.Flags().GetFloat64("tolerance")
		benchmark, _ := cmd.Flags().GetBool("benchmark")
		iterations, _ := cmd.Flags().GetInt("iterations")

		if width < 20 || height < 20 {
			return fmt.Errorf("test image too small: %dx%d (minimum 20x20)", width, height)
		}
		if shift < 1 || shift >= width/2 {
			return fmt.Errorf("invalid shift: %d (must be in [1, width/2))", shift)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, cmd.Short)
		_, _ = fmt.Fprintf(out, "Matching a %dx%d stripe pair shifted by %d pixels...\n\n", width, height, shift)

		opts := cfg.Matcher.ToOptions()
		matcher, err := adcensus.NewMatcher(width, height, opts)
		if err != nil {
			return fmt.Errorf("matcher setup failed: %w", err)
		}

		left, right := testutil.StripePair(width, height, shift)
		result, err := matcher.Compute(cmd.Context(), left, right)
		if err != nil {
			return fmt.Errorf("compute failed: %w", err)
		}

		summary := stats.Summarize(result.Disparity)
		_, _ = fmt.Fprintf(out, "valid ratio: %.1f%%\n", summary.ValidRatio*100)
		_, _ = fmt.Fprintf(out, "mean disparity: %.2f (expected %d)\n", summary.Mean, shift)
		_, _ = fmt.Fprintf(out, "total time: %.2fs\n\n", float64(result.Processing.TotalNs)/1e9)

		errOut := cmd.ErrOrStderr()
		failed := false
		if summary.ValidRatio < 0.5 {
			failed = true
			_, _ = fmt.Fprintf(errOut, "FAIL: only %.1f%% of pixels resolved\n", summary.ValidRatio*100)
		}
		if math.Abs(summary.Mean-float64(shift)) > tolerance {
			failed = true
			_, _ = fmt.Fprintf(errOut, "FAIL: mean disparity %.2f deviates from %d by more than %.2f\n",
				summary.Mean, shift, tolerance)
		}
		if failed {
			return errors.New("selftest failed")
		}

		if benchmark {
			pixels := int64(width) * int64(height)
			br := common.RunBenchmark("stripe-pair", iterations, pixels, func() error {
				_, err := matcher.Compute(cmd.Context(), left, right)
				return err
			})
			_, _ = fmt.Fprintln(out, br.String())
		}

		_, _ = fmt.Fprintln(out, "All checks passed. The stereo matcher is working correctly.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)

	selftestCmd.Flags().Int("width", 100, "test image width")
	selftestCmd.Flags().Int("height", 100, "test image height")
	selftestCmd.Flags().Int("shift", 5, "synthetic disparity in pixels")
	selftestCmd.Flags().Float64("tolerance", 1.0, "allowed deviation of the mean disparity")
	selftestCmd.Flags().Bool("benchmark", false, "measure throughput after the checks")
	selftestCmd.Flags().Int("iterations", 3, "benchmark iterations")
	addMatcherFlags(selftestCmd)
}

// GetSelftestCommand returns the selftest command for testing purposes.
func GetSelftestCommand() *cobra.Command {
	return selftestCmd
}
