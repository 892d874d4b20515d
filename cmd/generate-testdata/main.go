package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/testutil"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir = flag.String("out", "", "Output directory (default: <project root>/testdata/stereo)")
		width  = flag.Int("width", 100, "Pair width in pixels")
		height = flag.Int("height", 100, "Pair height in pixels")
		shift  = flag.Int("shift", 5, "Synthetic disparity in pixels")
		seed   = flag.Int64("seed", 42, "Seed for the random-dot pair")
		help   = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic stereo pairs for parallax testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                      # Write the default pairs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -width 320 -shift 12 # Larger pair, larger shift\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata", "stereo")
	}
	if err := testutil.EnsureDir(dir); err != nil {
		slog.Error("Failed to create output directory", "dir", dir, "error", err)
		os.Exit(1)
	}

	slog.Info("Generating synthetic stereo pairs",
		"dir", dir, "width", *width, "height", *height, "shift", *shift)

	type pair struct {
		name        string
		left, right []byte
	}
	var pairs []pair

	l, r := testutil.StripePair(*width, *height, *shift)
	pairs = append(pairs, pair{"stripes", l, r})

	l, r = testutil.RandomPair(*width, *height, *shift, *seed)
	pairs = append(pairs, pair{"random", l, r})

	l, r = testutil.GradientPair(*width, *height, *shift)
	pairs = append(pairs, pair{"gradient", l, r})

	for _, p := range pairs {
		if err := savePair(dir, p.name, p.left, p.right, *width, *height); err != nil {
			slog.Error("Failed to save pair", "name", p.name, "error", err)
			os.Exit(1)
		}
		slog.Info("Saved pair", "name", p.name)
	}

	slog.Info("Test data generation complete", "pairs", len(pairs))
}

// savePair writes one packed-BGR pair as <name>_left.png and <name>_right.png.
func savePair(dir, name string, left, right []byte, width, height int) error {
	leftImg, err := imageio.FromBGR(left, width, height)
	if err != nil {
		return err
	}
	rightImg, err := imageio.FromBGR(right, width, height)
	if err != nil {
		return err
	}
	if err := imageio.SaveImage(leftImg, filepath.Join(dir, name+"_left.png")); err != nil {
		return err
	}
	return imageio.SaveImage(rightImg, filepath.Join(dir, name+"_right.png"))
}
