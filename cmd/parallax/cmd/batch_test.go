package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/parallax/internal/batch"
	"github.com/MeKo-Tech/parallax/internal/testutil"
)

func TestBatchCommand(t *testing.T) {
	assert.NotNil(t, batchCmd)
	assert.Equal(t, "batch", batchCmd.Name())
	assert.NotEmpty(t, batchCmd.Short)
}

func TestBatchCommandNoArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"batch"})

	err := rootCmd.Execute()
	require.Error(t, err)
}

func TestBatchCommandInvalidReportFormat(t *testing.T) {
	dir := t.TempDir()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"batch", dir, "--report-format", "xml"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report format")
}

func TestBatchCommandEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"batch", dir, "--report-format", "text"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stereo pairs")
}

func TestBatchCommandEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline batch run in short mode")
	}

	dir := t.TempDir()
	left, right := testutil.StripePair(48, 36, 2)
	savePairImage(t, dir, "scene_left.png", left, 48, 36)
	savePairImage(t, dir, "scene_right.png", right, 48, 36)

	outDir := filepath.Join(dir, "out")
	reportFile := filepath.Join(dir, "report.json")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	batchCmd.SetOut(buf)
	batchCmd.SetErr(buf)
	rootCmd.SetArgs([]string{
		"batch", dir,
		"--max-disparity", "8",
		"--output-dir", outDir,
		"--report-format", "json",
		"--report-file", reportFile,
		"--quiet",
	})

	err := rootCmd.Execute()
	require.NoError(t, err)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)

	var result batch.Result
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	assert.FileExists(t, filepath.Join(outDir, "scene_disparity.png"))
}
