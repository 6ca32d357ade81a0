// Package chart renders report charts to PNG images.
package chart

import (
	"errors"
	"fmt"
	"math"
)

// Kind selects the chart type.
type Kind int

const (
	// Pie shows category shares.
	Pie Kind = iota
	// Bar shows one bar per label with its value drawn above it.
	Bar
)

func (k Kind) String() string {
	switch k {
	case Pie:
		return "pie"
	case Bar:
		return "bar"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Data is the input for one chart. Labels and Values are parallel.
// ValueLabels, when set, must be parallel too and are drawn above bars.
type Data struct {
	Title       string
	Labels      []string
	Values      []float64
	ValueLabels []string
}

// Renderer turns chart data into an encoded image.
type Renderer interface {
	Render(kind Kind, data Data) ([]byte, error)
}

// Validate checks that the data can be drawn as the given kind.
func (d Data) Validate(kind Kind) error {
	if len(d.Values) == 0 {
		return errors.New("chart has no values")
	}
	if len(d.Labels) != len(d.Values) {
		return fmt.Errorf("chart has %d labels for %d values", len(d.Labels), len(d.Values))
	}
	if d.ValueLabels != nil && len(d.ValueLabels) != len(d.Values) {
		return fmt.Errorf("chart has %d value labels for %d values", len(d.ValueLabels), len(d.Values))
	}

	var total float64
	for i, v := range d.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d (%s) is not finite", i, d.Labels[i])
		}
		if kind == Pie && v < 0 {
			return fmt.Errorf("pie value %d (%s) is negative", i, d.Labels[i])
		}
		total += v
	}
	if kind == Pie && total == 0 {
		return errors.New("pie values sum to zero")
	}
	return nil
}
