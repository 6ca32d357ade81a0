// Package summary reduces parsed equipment rows into a dataset.Summary.
package summary

import (
	"math"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// Compute returns the count, per-metric means and type distribution of rows.
//
// Means are accumulated in row order, so identical input always yields a
// bit-for-bit identical Summary. An empty input returns dataset.ErrEmptyDataset
// because the means are undefined. A mean that cannot be represented as a
// finite float64 yields a *dataset.SchemaError.
func Compute(rows []dataset.Row) (dataset.Summary, error) {
	if len(rows) == 0 {
		return dataset.Summary{}, dataset.ErrEmptyDataset
	}

	dist := make(map[string]int)
	for _, r := range rows {
		dist[r.Type]++
	}

	s := dataset.Summary{
		Count:            len(rows),
		TypeDistribution: dist,
	}
	metrics := []struct {
		column string
		value  func(dataset.Row) float64
		dst    *float64
	}{
		{dataset.ColumnFlowrate, func(r dataset.Row) float64 { return r.Flowrate }, &s.AvgFlowrate},
		{dataset.ColumnPressure, func(r dataset.Row) float64 { return r.Pressure }, &s.AvgPressure},
		{dataset.ColumnTemperature, func(r dataset.Row) float64 { return r.Temperature }, &s.AvgTemperature},
	}
	for _, m := range metrics {
		avg := mean(rows, m.value)
		if math.IsNaN(avg) || math.IsInf(avg, 0) {
			return dataset.Summary{}, &dataset.SchemaError{Column: m.column, Reason: "mean is out of range"}
		}
		*m.dst = avg
	}
	return s, nil
}

// mean sums first and divides once. If the sum overflows it falls back to
// summing pre-divided values, whose total is bounded by the largest |value|.
func mean(rows []dataset.Row, value func(dataset.Row) float64) float64 {
	n := float64(len(rows))

	var sum float64
	for _, r := range rows {
		sum += value(r)
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}

	var scaled float64
	for _, r := range rows {
		scaled += value(r) / n
	}
	return scaled
}
