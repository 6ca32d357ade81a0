package dataset

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSummary_Categories(t *testing.T) {
	s := Summary{
		Count:            7,
		TypeDistribution: map[string]int{"Valve": 2, "Pump": 3, "Compressor": 2},
	}

	got := s.Categories()
	want := []Category{{"Pump", 3}, {"Compressor", 2}, {"Valve", 2}}

	if len(got) != len(want) {
		t.Fatalf("Categories() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDataset_Older(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Dataset
		want bool
	}{
		{"earlier timestamp", Dataset{ID: "b", UploadedAt: t0}, Dataset{ID: "a", UploadedAt: t0.Add(time.Second)}, true},
		{"later timestamp", Dataset{ID: "a", UploadedAt: t0.Add(time.Second)}, Dataset{ID: "b", UploadedAt: t0}, false},
		{"tie lower id", Dataset{ID: "a", UploadedAt: t0}, Dataset{ID: "b", UploadedAt: t0}, true},
		{"tie higher id", Dataset{ID: "b", UploadedAt: t0}, Dataset{ID: "a", UploadedAt: t0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Older(tt.b); got != tt.want {
				t.Errorf("Older() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrors_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"malformed", &MalformedInputError{Err: errors.New("bare quote")}, ErrMalformedInput},
		{"schema", &SchemaError{Column: ColumnPressure, Line: 3, Reason: "not a number"}, ErrSchema},
		{"not found", &NotFoundError{ID: "x"}, ErrNotFound},
		{"render", &RenderError{DatasetID: "x", Stage: "chart", Err: errors.New("boom")}, ErrRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pipeline: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.target)
			}
		})
	}
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Column: ColumnType, Reason: "missing required column"}
	if got, want := err.Error(), `column "Type": missing required column`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
