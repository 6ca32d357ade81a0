package summary

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

func TestCompute_Example(t *testing.T) {
	rows := []dataset.Row{
		{Flowrate: 10, Pressure: 1, Temperature: 20, Type: "A"},
		{Flowrate: 20, Pressure: 2, Temperature: 30, Type: "B"},
		{Flowrate: 30, Pressure: 3, Temperature: 40, Type: "A"},
	}

	got, err := Compute(rows)
	require.NoError(t, err)

	assert.Equal(t, dataset.Summary{
		Count:            3,
		AvgFlowrate:      20.0,
		AvgPressure:      2.0,
		AvgTemperature:   30.0,
		TypeDistribution: map[string]int{"A": 2, "B": 1},
	}, got)
}

func TestCompute_Empty(t *testing.T) {
	_, err := Compute(nil)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)

	_, err = Compute([]dataset.Row{})
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
}

func TestCompute_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []string{"Pump", "Valve", "Compressor", "Reactor", "HeatExchanger"}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		rows := make([]dataset.Row, n)
		var sumF, sumP, sumT float64
		for i := range rows {
			rows[i] = dataset.Row{
				Flowrate:    rng.Float64() * 500,
				Pressure:    rng.Float64() * 20,
				Temperature: 50 + rng.Float64()*150,
				Type:        types[rng.Intn(len(types))],
			}
			sumF += rows[i].Flowrate
			sumP += rows[i].Pressure
			sumT += rows[i].Temperature
		}

		s, err := Compute(rows)
		require.NoError(t, err)

		assert.Equal(t, n, s.Count)
		assert.InDelta(t, sumF/float64(n), s.AvgFlowrate, 1e-9)
		assert.InDelta(t, sumP/float64(n), s.AvgPressure, 1e-9)
		assert.InDelta(t, sumT/float64(n), s.AvgTemperature, 1e-9)

		total := 0
		for _, c := range s.TypeDistribution {
			total += c
		}
		assert.Equal(t, s.Count, total, "distribution must sum to count")
	}
}

func TestCompute_Deterministic(t *testing.T) {
	rows := []dataset.Row{
		{Flowrate: 0.1, Pressure: 0.2, Temperature: 0.3, Type: "X"},
		{Flowrate: 1e16, Pressure: 1, Temperature: -1e-3, Type: "Y"},
		{Flowrate: -1e16, Pressure: 0.7, Temperature: 3.3, Type: "X"},
	}

	a, err := Compute(rows)
	require.NoError(t, err)
	b, err := Compute(rows)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(a.AvgFlowrate), math.Float64bits(b.AvgFlowrate))
	assert.Equal(t, math.Float64bits(a.AvgPressure), math.Float64bits(b.AvgPressure))
	assert.Equal(t, math.Float64bits(a.AvgTemperature), math.Float64bits(b.AvgTemperature))
	assert.Equal(t, a.TypeDistribution, b.TypeDistribution)
}

func TestCompute_LargeValuesStayFinite(t *testing.T) {
	rows := []dataset.Row{
		{Flowrate: 1e308, Pressure: 1, Temperature: -1e308, Type: "A"},
		{Flowrate: 1e308, Pressure: 1, Temperature: -1e308, Type: "A"},
		{Flowrate: 1e308, Pressure: 1, Temperature: -1e308, Type: "B"},
	}

	s, err := Compute(rows)
	require.NoError(t, err)

	assert.False(t, math.IsInf(s.AvgFlowrate, 0))
	assert.InEpsilon(t, 1e308, s.AvgFlowrate, 1e-12)
	assert.InEpsilon(t, -1e308, s.AvgTemperature, 1e-12)
	assert.Equal(t, 1.0, s.AvgPressure)
}

func TestCompute_MaxFloatMean(t *testing.T) {
	rows := []dataset.Row{
		{Flowrate: math.MaxFloat64, Pressure: 0, Temperature: 0, Type: "A"},
		{Flowrate: math.MaxFloat64, Pressure: 0, Temperature: 0, Type: "A"},
	}

	s, err := Compute(rows)
	require.NoError(t, err)
	assert.False(t, math.IsInf(s.AvgFlowrate, 0))
	assert.Greater(t, s.AvgFlowrate, 1e308)
}

func TestCompute_NonFiniteInputRejected(t *testing.T) {
	tests := []struct {
		name   string
		row    dataset.Row
		column string
	}{
		{"positive infinity", dataset.Row{Flowrate: math.Inf(1), Type: "A"}, dataset.ColumnFlowrate},
		{"NaN", dataset.Row{Pressure: math.NaN(), Type: "A"}, dataset.ColumnPressure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute([]dataset.Row{tt.row})
			require.ErrorIs(t, err, dataset.ErrSchema)

			var se *dataset.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.column, se.Column)
		})
	}
}
