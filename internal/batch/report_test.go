package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return &Result{
		Pairs: []PairResult{
			{
				Pair:       Pair{Name: "scene", Left: "scene_left.png", Right: "scene_right.png"},
				Width:      64,
				Height:     48,
				ValidRatio: 0.95,
				Occlusions: 12,
				Mismatches: 3,
				DurationNs: 42_000_000,
				Outputs:    []string{"out/scene_disparity.png"},
			},
			{
				Pair:  Pair{Name: "broken", Left: "broken_left.png", Right: "broken_right.png"},
				Error: "image error in decode: unexpected EOF",
			},
		},
		Total:       2,
		Succeeded:   1,
		Failed:      1,
		WorkerCount: 4,
		DurationNs:  50_000_000,
	}
}

func TestFormatReport_JSON(t *testing.T) {
	output, err := sampleResult().FormatReport("json")
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))

	assert.Equal(t, 2, decoded.Total)
	assert.Equal(t, 1, decoded.Succeeded)
	require.Len(t, decoded.Pairs, 2)
	assert.Equal(t, "scene", decoded.Pairs[0].Name)
	assert.Equal(t, 64, decoded.Pairs[0].Width)
	assert.InDelta(t, 0.95, decoded.Pairs[0].ValidRatio, 1e-9)
	assert.NotEmpty(t, decoded.Pairs[1].Error)
}

func TestFormatReport_CSV(t *testing.T) {
	output, err := sampleResult().FormatReport("csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3) // header + two pairs
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[0], "valid_ratio")
	assert.Contains(t, lines[1], "scene")
	assert.Contains(t, lines[1], "0.9500")
	assert.Contains(t, lines[1], "42") // duration in ms
	assert.Contains(t, lines[2], "broken")
}

func TestFormatReport_Text(t *testing.T) {
	output, err := sampleResult().FormatReport("text")
	require.NoError(t, err)

	assert.Contains(t, output, "ok   scene")
	assert.Contains(t, output, "64x48")
	assert.Contains(t, output, "95.0%")
	assert.Contains(t, output, "FAIL broken")
	assert.Contains(t, output, "2 pairs, 1 succeeded, 1 failed")
}

func TestSaveReport_WritesFile(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "report.json")

	require.NoError(t, sampleResult().SaveReport("json", outFile, true))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Total)
}
