// Package tabular parses uploaded CSV content into typed equipment rows.
//
// Parsing is strict: a missing required column, an unparseable number or an
// empty category fails the whole upload so that no summary is ever computed
// from partially read data.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls how the byte stream is decoded.
type Options struct {
	// Delimiter separates fields. If 0, it is detected from the header line
	// among ',', ';' and '\t'.
	Delimiter rune
}

// Parse decodes r into rows, in file order.
//
// It returns a *dataset.MalformedInputError if the stream is not decodable
// as delimited text and a *dataset.SchemaError if a required column is
// absent or one of its values is invalid.
func Parse(r io.Reader, opts Options) ([]dataset.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &dataset.MalformedInputError{Err: fmt.Errorf("read input: %w", err)}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &dataset.MalformedInputError{Err: errors.New("input is empty")}
	}
	if !utf8.Valid(data) {
		return nil, &dataset.MalformedInputError{Err: errors.New("input is not valid UTF-8 text")}
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, malformed(err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	// Quoted fields may span lines, so positions come from the reader.
	lineOf := func(field int) int {
		line, _ := cr.FieldPos(field)
		return line
	}

	var rows []dataset.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		row, err := parseRecord(rec, idx, lineOf)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// DetectDelimiter picks the most frequent of ',', ';' and '\t' on the first
// line of data. Comma wins ties, including the no-delimiter case.
func DetectDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}

	best, bestCount := ',', bytes.Count(first, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(first, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

type columns struct {
	flowrate, pressure, temperature, typ int
}

func columnIndex(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, &dataset.SchemaError{Column: name, Reason: "missing required column"}
		}
		return i, nil
	}

	var (
		c   columns
		err error
	)
	if c.flowrate, err = lookup(dataset.ColumnFlowrate); err != nil {
		return c, err
	}
	if c.pressure, err = lookup(dataset.ColumnPressure); err != nil {
		return c, err
	}
	if c.temperature, err = lookup(dataset.ColumnTemperature); err != nil {
		return c, err
	}
	if c.typ, err = lookup(dataset.ColumnType); err != nil {
		return c, err
	}
	return c, nil
}

// parseRecord converts one record. lineOf maps a field index to the
// physical line the field starts on.
func parseRecord(rec []string, c columns, lineOf func(field int) int) (dataset.Row, error) {
	var (
		row dataset.Row
		err error
	)
	if row.Flowrate, err = parseNumber(rec[c.flowrate], dataset.ColumnFlowrate, lineOf(c.flowrate)); err != nil {
		return row, err
	}
	if row.Pressure, err = parseNumber(rec[c.pressure], dataset.ColumnPressure, lineOf(c.pressure)); err != nil {
		return row, err
	}
	if row.Temperature, err = parseNumber(rec[c.temperature], dataset.ColumnTemperature, lineOf(c.temperature)); err != nil {
		return row, err
	}

	row.Type = strings.TrimSpace(rec[c.typ])
	if row.Type == "" {
		return row, &dataset.SchemaError{Column: dataset.ColumnType, Line: lineOf(c.typ), Reason: "empty value"}
	}
	return row, nil
}

func parseNumber(raw, column string, line int) (float64, error) {
	v := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &dataset.SchemaError{Column: column, Line: line, Reason: fmt.Sprintf("invalid number %q", v)}
	}
	return f, nil
}

func malformed(err error) error {
	if errors.Is(err, io.EOF) {
		return &dataset.MalformedInputError{Err: errors.New("missing header row")}
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &dataset.MalformedInputError{Line: pe.Line, Err: pe.Err}
	}
	return &dataset.MalformedInputError{Err: err}
}
