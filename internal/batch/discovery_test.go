package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates a placeholder file; discovery only stats paths.
func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSplitLeftName(t *testing.T) {
	tests := []struct {
		base      string
		stem      string
		rightBase string
		ok        bool
	}{
		{"scene_left.png", "scene", "scene_right.png", true},
		{"scene_01_left.jpg", "scene_01", "scene_01_right.jpg", true},
		{"left_scene.png", "scene", "right_scene.png", true},
		{"left_a_b.tif", "a_b", "right_a_b.tif", true},
		{"scene_right.png", "", "", false},
		{"right_scene.png", "", "", false},
		{"scene.png", "", "", false},
		{"_left.png", "", "", false},
		{"left_.png", "", "", false},
	}

	for _, tt := range tests {
		stem, rightBase, ok := splitLeftName(tt.base)
		assert.Equal(t, tt.ok, ok, "base %q", tt.base)
		assert.Equal(t, tt.stem, stem, "base %q", tt.base)
		assert.Equal(t, tt.rightBase, rightBase, "base %q", tt.base)
	}
}

func TestDiscoverPairs_SuffixConvention(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "scene_left.png"))
	touch(t, filepath.Join(dir, "scene_right.png"))

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "scene", pairs[0].Name)
	assert.Equal(t, filepath.Join(dir, "scene_left.png"), pairs[0].Left)
	assert.Equal(t, filepath.Join(dir, "scene_right.png"), pairs[0].Right)
}

func TestDiscoverPairs_PrefixConvention(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "left_scene.jpg"))
	touch(t, filepath.Join(dir, "right_scene.jpg"))

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "scene", pairs[0].Name)
}

func TestDiscoverPairs_SkipsUnmatchedLeft(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "lonely_left.png"))

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDiscoverPairs_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "notes_left.txt"))
	touch(t, filepath.Join(dir, "notes_right.txt"))

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDiscoverPairs_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "captures")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	touch(t, filepath.Join(sub, "deep_left.png"))
	touch(t, filepath.Join(sub, "deep_right.png"))

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	assert.Empty(t, pairs, "non-recursive walk should skip subdirectories")

	pairs, err = DiscoverPairs([]string{dir}, true)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "deep", pairs[0].Name)
}

func TestDiscoverPairs_SortedByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zebra", "apple", "mango"} {
		touch(t, filepath.Join(dir, name+"_left.png"))
		touch(t, filepath.Join(dir, name+"_right.png"))
	}

	pairs, err := DiscoverPairs([]string{dir}, false)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, "apple", pairs[0].Name)
	assert.Equal(t, "mango", pairs[1].Name)
	assert.Equal(t, "zebra", pairs[2].Name)
}

func TestDiscoverPairs_ErrorOnMissingDir(t *testing.T) {
	_, err := DiscoverPairs([]string{"/nonexistent/parallax-test-dir"}, false)
	assert.Error(t, err)
}

func TestDiscoverPairs_ErrorOnFileArgument(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain_left.png")
	touch(t, file)

	_, err := DiscoverPairs([]string{file}, false)
	assert.Error(t, err)
}
