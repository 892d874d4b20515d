package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FormatReport renders the run result in the specified format.
func (r *Result) FormatReport(format string) (string, error) {
	switch format {
	case "json":
		return r.formatJSON()
	case "csv":
		return r.formatCSV()
	default: // text
		return r.formatText(), nil
	}
}

// SaveReport writes the formatted report to a file or stdout.
func (r *Result) SaveReport(format, outputFile string, quiet bool) error {
	output, err := r.FormatReport(format)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Report written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}

	duration := time.Duration(r.DurationNs)
	_, _ = fmt.Fprintf(os.Stdout, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Total pairs: %d\n", r.Total)
	_, _ = fmt.Fprintf(os.Stdout, "  Succeeded: %d\n", r.Succeeded)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", r.Failed)
	if r.Skipped > 0 {
		_, _ = fmt.Fprintf(os.Stdout, "  Skipped: %d\n", r.Skipped)
	}
	_, _ = fmt.Fprintf(os.Stdout, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", duration.Round(time.Millisecond))
	if r.Succeeded > 0 && duration > 0 {
		avg := duration / time.Duration(r.Succeeded)
		_, _ = fmt.Fprintf(os.Stdout, "  Avg per pair: %v\n", avg.Round(time.Millisecond))
		_, _ = fmt.Fprintf(os.Stdout, "  Throughput: %.1f pairs/sec\n", float64(r.Succeeded)/duration.Seconds())
	}
}

// formatJSON renders the full result as indented JSON.
func (r *Result) formatJSON() (string, error) {
	bts, err := json.MarshalIndent(r, "", "  ")
	return string(bts), err
}

// formatCSV renders one row per pair.
func (r *Result) formatCSV() (string, error) {
	rows := [][]string{{
		"name", "left", "right", "width", "height", "valid_ratio",
		"occlusions", "mismatches", "duration_ms", "error",
	}}

	for _, pr := range r.Pairs {
		rows = append(rows, []string{
			pr.Name,
			pr.Left,
			pr.Right,
			strconv.Itoa(pr.Width),
			strconv.Itoa(pr.Height),
			fmt.Sprintf("%.4f", pr.ValidRatio),
			strconv.Itoa(pr.Occlusions),
			strconv.Itoa(pr.Mismatches),
			strconv.FormatInt(pr.DurationNs/1e6, 10),
			pr.Error,
		})
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText renders a human-readable summary.
func (r *Result) formatText() string {
	var output strings.Builder

	for _, pr := range r.Pairs {
		if pr.Error != "" {
			output.WriteString(fmt.Sprintf("FAIL %s: %s\n", pr.Name, pr.Error))
			continue
		}
		line := fmt.Sprintf("ok   %s  %dx%d  valid %.1f%%  %v",
			pr.Name, pr.Width, pr.Height, pr.ValidRatio*100,
			time.Duration(pr.DurationNs).Round(time.Millisecond))
		if len(pr.Outputs) > 0 {
			line += "  -> " + strings.Join(pr.Outputs, ", ")
		}
		output.WriteString(line + "\n")
	}

	output.WriteString(fmt.Sprintf("\n%d pairs, %d succeeded, %d failed, %d skipped in %v\n",
		r.Total, r.Succeeded, r.Failed, r.Skipped,
		time.Duration(r.DurationNs).Round(time.Millisecond)))

	return output.String()
}
