package tabular

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

func TestParse_Valid(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"Pump-1,Pump,120.5,5.2,110\n" +
		"Valve-1,Valve,60,4.1,105.5\n"

	rows, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, dataset.Row{Flowrate: 120.5, Pressure: 5.2, Temperature: 110, Type: "Pump"}, rows[0])
	assert.Equal(t, dataset.Row{Flowrate: 60, Pressure: 4.1, Temperature: 105.5, Type: "Valve"}, rows[1])
}

func TestParse_ColumnOrderAndWhitespace(t *testing.T) {
	input := "\ufeff Type , Temperature,Pressure,Flowrate,Extra\n" +
		" A , 20 , 1 , 10 ,ignored\n"

	rows, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dataset.Row{Flowrate: 10, Pressure: 1, Temperature: 20, Type: "A"}, rows[0])
}

func TestParse_HeaderOnly(t *testing.T) {
	rows, err := Parse(strings.NewReader("Flowrate,Pressure,Temperature,Type\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
	}{
		{"semicolon detected", "Flowrate;Pressure;Temperature;Type\n1.5;2;3;A\n", Options{}},
		{"tab detected", "Flowrate\tPressure\tTemperature\tType\n1.5\t2\t3\tA\n", Options{}},
		{"explicit delimiter", "Flowrate|Pressure|Temperature|Type\n1.5|2|3|A\n", Options{Delimiter: '|'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, 1.5, rows[0].Flowrate)
			assert.Equal(t, "A", rows[0].Type)
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', DetectDelimiter([]byte("a,b;c\n1;2;3")))
	assert.Equal(t, ';', DetectDelimiter([]byte("a;b;c,d\n")))
	assert.Equal(t, '\t', DetectDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, ',', DetectDelimiter([]byte("single")))
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column string
		line   int
	}{
		{"missing type", "Flowrate,Pressure,Temperature\n1,2,3\n", dataset.ColumnType, 0},
		{"case sensitive", "flowrate,Pressure,Temperature,Type\n1,2,3,A\n", dataset.ColumnFlowrate, 0},
		{"bad number", "Flowrate,Pressure,Temperature,Type\n1,2,3,A\n1,abc,3,A\n", dataset.ColumnPressure, 3},
		{"empty number", "Flowrate,Pressure,Temperature,Type\n1,2,,A\n", dataset.ColumnTemperature, 2},
		{"nan rejected", "Flowrate,Pressure,Temperature,Type\nNaN,2,3,A\n", dataset.ColumnFlowrate, 2},
		{"inf rejected", "Flowrate,Pressure,Temperature,Type\n1,+Inf,3,A\n", dataset.ColumnPressure, 2},
		{"empty type", "Flowrate,Pressure,Temperature,Type\n1,2,3, \n", dataset.ColumnType, 2},
		{"after multi-line quoted field", "Type,Flowrate,Pressure,Temperature\n\"Pump\nNo. 1\",1,2,3\nB,1,x,3\n", dataset.ColumnPressure, 4},
		{"inside multi-line record", "Type,Flowrate,Pressure,Temperature\n\"Pump\nNo. 1\",1,bad,3\n", dataset.ColumnPressure, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(tt.input), Options{})
			require.Error(t, err)
			assert.Nil(t, rows)
			assert.ErrorIs(t, err, dataset.ErrSchema)

			var se *dataset.SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.column, se.Column)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestParse_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\n"},
		{"ragged row", "Flowrate,Pressure,Temperature,Type\n1,2,3\n"},
		{"bare quote", "Flowrate,Pressure,Temperature,Type\n1,2,3,A\"B\n"},
		{"binary", "Flowrate,Pressure\xff\xfe,Temperature,Type\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(tt.input), Options{})
			assert.Nil(t, rows)
			assert.ErrorIs(t, err, dataset.ErrMalformedInput)
			assert.NotErrorIs(t, err, dataset.ErrSchema)
		})
	}
}

func TestParse_ReadError(t *testing.T) {
	_, err := Parse(iotest.ErrReader(errors.New("connection reset")), Options{})
	assert.ErrorIs(t, err, dataset.ErrMalformedInput)
}
