// Package stats computes summary statistics over disparity maps for reports
// and health checks.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of valid disparities in a map.
type Summary struct {
	Total      int     `json:"total_pixels"`
	Valid      int     `json:"valid_pixels"`
	Invalid    int     `json:"invalid_pixels"`
	ValidRatio float64 `json:"valid_ratio"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Median     float64 `json:"median"`
	P05        float64 `json:"p05"`
	P95        float64 `json:"p95"`
}

// Summarize computes distribution statistics over the valid (finite) values
// of a disparity map. A map with no valid pixels yields a zero Summary with
// only Total and Invalid set.
func Summarize(disp []float32) Summary {
	s := Summary{Total: len(disp)}

	values := make([]float64, 0, len(disp))
	for _, d := range disp {
		f := float64(d)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		values = append(values, f)
	}
	s.Valid = len(values)
	s.Invalid = s.Total - s.Valid
	if s.Total > 0 {
		s.ValidRatio = float64(s.Valid) / float64(s.Total)
	}
	if s.Valid == 0 {
		return s
	}

	sort.Float64s(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Mean = stat.Mean(values, nil)
	if s.Valid > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	s.P05 = stat.Quantile(0.05, stat.Empirical, values, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, values, nil)
	return s
}
