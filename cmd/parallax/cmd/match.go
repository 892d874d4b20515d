package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/mempool"
	"github.com/MeKo-Tech/parallax/internal/stats"
	"github.com/MeKo-Tech/parallax/internal/visualize"
)

const (
	outputFormatGray  = "gray"
	outputFormatColor = "color"
	outputFormatBoth  = "both"
)

// matchResult is the JSON summary printed by match --json.
type matchResult struct {
	Left       string         `json:"left"`
	Right      string         `json:"right"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	ValidRatio float64        `json:"valid_ratio"`
	Occlusions int            `json:"occlusions"`
	Mismatches int            `json:"mismatches"`
	DurationNs int64          `json:"duration_ns"`
	Stats      *stats.Summary `json:"stats,omitempty"`
	Outputs    []string       `json:"outputs,omitempty"`
}

// matchCmd represents the match command.
var matchCmd = &cobra.Command{
	Use:   "match <left-image> <right-image>",
	Short: "Compute the disparity map for one rectified stereo pair",
	Long: `Compute a dense disparity map for a rectified stereo image pair using
the AD-Census matcher and write grayscale and/or color renderings.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  parallax match left.png right.png
  parallax match left.png right.png --max-disparity 32 --format both
  parallax match left.png right.png --stats --json`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyMatcherOverrides(cmd, &cfg.Matcher)

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		outputDir := cfg.Output.Directory
		if cmd.Flags().Changed("output-dir") {
			outputDir, _ = cmd.Flags().GetString("output-dir")
		}
		withStats := cfg.Output.Stats
		if cmd.Flags().Changed("stats") {
			withStats, _ = cmd.Flags().GetBool("stats")
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		switch format {
		case outputFormatGray, outputFormatColor, outputFormatBoth:
		default:
			return fmt.Errorf("invalid output format: %s (must be one of: gray, color, both)", format)
		}

		leftPath, rightPath := args[0], args[1]
		for _, pth := range args {
			if !imageio.IsSupportedImage(pth) {
				return fmt.Errorf("unsupported image format: %s", pth)
			}
		}

		left, right, err := imageio.LoadStereoPair(leftPath, rightPath)
		if err != nil {
			return err
		}

		leftBGR, width, height, err := imageio.ToBGRPooled(left)
		if err != nil {
			return err
		}
		defer mempool.PutUint8(leftBGR)
		rightBGR, _, _, err := imageio.ToBGRPooled(right)
		if err != nil {
			return err
		}
		defer mempool.PutUint8(rightBGR)

		matcher, err := adcensus.NewMatcher(width, height, cfg.Matcher.ToOptions())
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := matcher.Compute(cmd.Context(), leftBGR, rightBGR)
		if err != nil {
			return fmt.Errorf("matching failed: %w", err)
		}

		mr := matchResult{
			Left:       leftPath,
			Right:      rightPath,
			Width:      width,
			Height:     height,
			ValidRatio: result.ValidRatio(),
			Occlusions: result.Occlusions,
			Mismatches: result.Mismatches,
			DurationNs: time.Since(start).Nanoseconds(),
		}
		if withStats {
			s := stats.Summarize(result.Disparity)
			mr.Stats = &s
		}

		name := pairStem(leftPath)
		mr.Outputs, err = saveRenderings(result, name, outputDir, format)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			bts, err := json.MarshalIndent(mr, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			_, _ = fmt.Fprintln(out, string(bts))
			return nil
		}

		_, _ = fmt.Fprintf(out, "%s: %dx%d, %.1f%% valid, %d occlusions, %d mismatches (%.2fs)\n",
			name, width, height, mr.ValidRatio*100, mr.Occlusions, mr.Mismatches,
			time.Duration(mr.DurationNs).Seconds())
		if mr.Stats != nil {
			_, _ = fmt.Fprintf(out, "disparity: min %.2f, max %.2f, mean %.2f, median %.2f, stddev %.2f\n",
				mr.Stats.Min, mr.Stats.Max, mr.Stats.Mean, mr.Stats.Median, mr.Stats.StdDev)
		}
		for _, pth := range mr.Outputs {
			_, _ = fmt.Fprintf(out, "saved %s\n", pth)
		}
		return nil
	},
}

// pairStem derives the output name from the left image path, dropping the
// extension and the left-marker used by the pairing conventions.
func pairStem(leftPath string) string {
	base := filepath.Base(leftPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if stem, ok := strings.CutSuffix(base, "_left"); ok {
		return stem
	}
	if stem, ok := strings.CutPrefix(base, "left_"); ok {
		return stem
	}
	return base
}

// saveRenderings writes the requested disparity images and returns their
// paths. An empty directory disables image output.
func saveRenderings(result *adcensus.Result, name, dir, format string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	var outputs []string
	if format == outputFormatGray || format == outputFormatBoth {
		img, err := visualize.GrayImage(result.Disparity, result.Width, result.Height)
		if err != nil {
			if errors.Is(err, visualize.ErrNoValidPixels) {
				return nil, fmt.Errorf("rendering %s: %w", name, err)
			}
			return nil, err
		}
		path := filepath.Join(dir, name+"_disparity.png")
		if err := imageio.SaveImage(img, path); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}
	if format == outputFormatColor || format == outputFormatBoth {
		img, err := visualize.ColorImage(result.Disparity, result.Width, result.Height)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		path := filepath.Join(dir, name+"_disparity_color.png")
		if err := imageio.SaveImage(img, path); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("format", "f", "gray", "rendering format (gray, color, both)")
	matchCmd.Flags().StringP("output-dir", "o", "output", "directory for disparity images (empty disables)")
	matchCmd.Flags().Bool("stats", false, "compute disparity statistics")
	matchCmd.Flags().Bool("json", false, "print the result summary as JSON")
	addMatcherFlags(matchCmd)
}

// GetMatchCommand returns the match command for testing purposes.
func GetMatchCommand() *cobra.Command {
	return matchCmd
}
