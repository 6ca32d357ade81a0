// Package dataset defines the records that flow through the chemviz pipeline:
// parsed sensor rows, the summary computed from them, and the persisted
// dataset that pairs a summary with its identity.
package dataset

import (
	"sort"
	"time"
)

// Required CSV header names. Matching is case-sensitive.
const (
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
	ColumnType        = "Type"
)

// RequiredColumns lists every column an upload must carry, in report order.
var RequiredColumns = []string{ColumnFlowrate, ColumnPressure, ColumnTemperature, ColumnType}

// Row is one equipment sample. Rows only live for the duration of a summarization.
type Row struct {
	Flowrate    float64
	Pressure    float64
	Temperature float64
	Type        string
}

// Summary holds the aggregate statistics of one upload.
//
// The averages are only defined for Count > 0; an empty upload never produces
// a Summary (see ErrEmptyDataset).
type Summary struct {
	Count            int            `json:"count" validate:"gt=0"`
	AvgFlowrate      float64        `json:"avg_flowrate" validate:"finite"`
	AvgPressure      float64        `json:"avg_pressure" validate:"finite"`
	AvgTemperature   float64        `json:"avg_temperature" validate:"finite"`
	TypeDistribution map[string]int `json:"type_distribution" validate:"required,min=1,dive,keys,required,endkeys,gt=0"`
}

// Category is one entry of a type distribution.
type Category struct {
	Label string
	Count int
}

// Categories returns the type distribution ordered by count descending, then
// label ascending. Every table, chart and legend uses this order so colors
// stay consistent within a report.
func (s Summary) Categories() []Category {
	out := make([]Category, 0, len(s.TypeDistribution))
	for label, n := range s.TypeDistribution {
		out = append(out, Category{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Dataset is one persisted ingestion result. Datasets are immutable once saved.
type Dataset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
}

// Older reports whether d precedes other in retention order: earlier upload
// time first, lower ID first on equal timestamps.
func (d Dataset) Older(other Dataset) bool {
	if !d.UploadedAt.Equal(other.UploadedAt) {
		return d.UploadedAt.Before(other.UploadedAt)
	}
	return d.ID < other.ID
}
