package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/parallax/internal/imageio"
)

// Pair names the two rectified views of one stereo capture. Name is the
// shared stem used for output files.
type Pair struct {
	Name  string `json:"name"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// DiscoverPairs walks the given directories and pairs up left/right images
// by naming convention. Supported conventions are "<stem>_left.<ext>" with
// "<stem>_right.<ext>" and "left_<stem>.<ext>" with "right_<stem>.<ext>".
// Left images without a matching right file are logged and skipped. Pairs
// are returned sorted by name.
func DiscoverPairs(dirs []string, recursive bool) ([]Pair, error) {
	var pairs []Pair

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}

		found, err := discoverInDirectory(dir, recursive)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, found...)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs, nil
}

// discoverInDirectory finds stereo pairs in a single directory tree.
func discoverInDirectory(dir string, recursive bool) ([]Pair, error) {
	var pairs []Pair

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if !imageio.IsSupportedImage(path) {
			return nil
		}

		stem, rightBase, ok := splitLeftName(filepath.Base(path))
		if !ok {
			return nil
		}

		rightPath := filepath.Join(filepath.Dir(path), rightBase)
		if _, err := os.Stat(rightPath); err != nil {
			slog.Warn("left image has no right counterpart, skipping", "left", path)
			return nil
		}

		pairs = append(pairs, Pair{Name: stem, Left: path, Right: rightPath})
		return nil
	}

	return pairs, filepath.Walk(dir, walkFn)
}

// splitLeftName reports whether base names the left image of a pair and, if
// so, derives the matching right file name and the shared stem.
func splitLeftName(base string) (stem, rightBase string, ok bool) {
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if s, found := strings.CutSuffix(name, "_left"); found && s != "" {
		return s, s + "_right" + ext, true
	}
	if s, found := strings.CutPrefix(name, "left_"); found && s != "" {
		return s, "right_" + s + ext, true
	}
	return "", "", false
}
