package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "go.mod"))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe")
	assert.False(t, FileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.True(t, FileExists(path))
}

func TestStripePair_ShiftRelation(t *testing.T) {
	const width, height, shift = 40, 8, 5
	left, right := StripePair(width, height, shift)

	require.Len(t, left, width*height*3)
	require.Len(t, right, width*height*3)

	// Every right pixel equals the left pixel shift columns to its right.
	for y := 0; y < height; y++ {
		for x := 0; x < width-shift; x++ {
			l := left[(y*width+x+shift)*3]
			r := right[(y*width+x)*3]
			assert.Equal(t, l, r, "pixel (%d,%d)", x, y)
		}
	}
}

func TestRandomPair_DeterministicAndShifted(t *testing.T) {
	const width, height, shift = 32, 10, 3
	left1, right1 := RandomPair(width, height, shift, 7)
	left2, right2 := RandomPair(width, height, shift, 7)

	assert.Equal(t, left1, left2)
	assert.Equal(t, right1, right2)

	for y := 0; y < height; y++ {
		for x := 0; x < width-shift; x++ {
			assert.Equal(t, left1[(y*width+x+shift)*3], right1[(y*width+x)*3])
		}
	}

	left3, _ := RandomPair(width, height, shift, 8)
	assert.NotEqual(t, left1, left3, "different seeds should give different noise")
}

func TestGradientPair_Dimensions(t *testing.T) {
	const width, height, shift = 20, 12, 2
	left, right := GradientPair(width, height, shift)
	require.Len(t, left, width*height*3)
	require.Len(t, right, width*height*3)
}
