package chart

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultPalette colors pie slices in order, cycling when there are more
// categories than colors.
var DefaultPalette = []drawing.Color{
	drawing.ColorFromHex("6366f1"),
	drawing.ColorFromHex("10b981"),
	drawing.ColorFromHex("f59e0b"),
	drawing.ColorFromHex("ef4444"),
	drawing.ColorFromHex("8b5cf6"),
}

// DefaultBarColor fills every bar.
var DefaultBarColor = drawing.ColorFromHex("818cf8")

const (
	defaultWidth      = 640
	defaultHeight     = 480
	defaultBarWidth   = 80
	defaultBarSpacing = 60
	valueLabelGap     = 6
)

// PNGRenderer draws charts with go-chart and encodes them as PNG.
// The zero value is not usable; call NewPNGRenderer.
type PNGRenderer struct {
	Width    int
	Height   int
	Palette  []drawing.Color
	BarColor drawing.Color
}

// NewPNGRenderer returns a renderer with the default size and colors.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{
		Width:    defaultWidth,
		Height:   defaultHeight,
		Palette:  DefaultPalette,
		BarColor: DefaultBarColor,
	}
}

// Render implements Renderer.
func (p *PNGRenderer) Render(kind Kind, data Data) ([]byte, error) {
	if err := data.Validate(kind); err != nil {
		return nil, fmt.Errorf("invalid %s chart: %w", kind, err)
	}

	var buf bytes.Buffer
	var err error
	switch kind {
	case Pie:
		err = p.pie(data).Render(gochart.PNG, &buf)
	case Bar:
		err = p.bar(data).Render(gochart.PNG, &buf)
	default:
		return nil, fmt.Errorf("unsupported chart kind %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func (p *PNGRenderer) pie(data Data) gochart.PieChart {
	values := make([]gochart.Value, len(data.Values))
	for i, v := range data.Values {
		values[i] = gochart.Value{
			Label: data.Labels[i],
			Value: v,
			Style: gochart.Style{
				FillColor:   p.Palette[i%len(p.Palette)],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
			},
		}
	}

	return gochart.PieChart{
		Title:      data.Title,
		Width:      p.Width,
		Height:     p.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Values:     values,
	}
}

func (p *PNGRenderer) bar(data Data) gochart.BarChart {
	lo, hi := barRange(data.Values)

	bars := make([]gochart.Value, len(data.Values))
	for i, v := range data.Values {
		bars[i] = gochart.Value{
			Label: data.Labels[i],
			Value: v,
			Style: gochart.Style{
				FillColor:   p.BarColor,
				StrokeColor: p.BarColor,
				StrokeWidth: 1,
			},
		}
	}

	bc := gochart.BarChart{
		Title:        data.Title,
		Width:        p.Width,
		Height:       p.Height,
		BarWidth:     defaultBarWidth,
		BarSpacing:   defaultBarSpacing,
		Background:   gochart.Style{Padding: gochart.Box{Top: 60, Left: 10, Right: 10, Bottom: 10}},
		YAxis:        gochart.YAxis{Range: &gochart.ContinuousRange{Min: lo, Max: hi}, ValueFormatter: axisLabel},
		UseBaseValue: lo < 0,
		BaseValue:    0,
		Bars:         bars,
	}
	if data.ValueLabels != nil {
		bc.Elements = []gochart.Renderable{valueLabels(data, lo, hi)}
	}
	return bc
}

// valueLabels draws each value label centered above its bar. Bar geometry
// mirrors go-chart's layout: bars start at the canvas left edge, each
// offset by half the spacing.
func valueLabels(data Data, lo, hi float64) gochart.Renderable {
	return func(r gochart.Renderer, canvasBox gochart.Box, defaults gochart.Style) {
		width, spacing := barGeometry(len(data.Values), canvasBox.Width())

		style := gochart.Style{
			FontSize:  10,
			FontColor: drawing.ColorFromHex("374151"),
		}.InheritFrom(defaults)
		style.WriteTextOptionsToRenderer(r)

		x := canvasBox.Left
		for i, label := range data.ValueLabels {
			top := math.Max(data.Values[i], 0)
			y := canvasBox.Bottom - int(math.Ceil((top-lo)/(hi-lo)*float64(canvasBox.Height())))

			tb := r.MeasureText(label)
			cx := x + spacing/2 + width/2
			r.Text(label, cx-tb.Width()/2, y-valueLabelGap)

			x += width + spacing
		}
	}
}

// barGeometry returns bar width and spacing, shrunk proportionally when the
// bars do not fit the canvas.
func barGeometry(n, canvasWidth int) (width, spacing int) {
	width, spacing = defaultBarWidth, defaultBarSpacing
	total := n * (width + spacing)
	if total <= canvasWidth || total == 0 {
		return width, spacing
	}
	scale := float64(canvasWidth) / float64(total)
	return int(float64(width) * scale), int(float64(spacing) * scale)
}

// barRange returns a y-axis range that includes zero and leaves headroom
// for value labels above the tallest bar. The range width stays finite so
// pixel offsets can be computed from it.
func barRange(values []float64) (lo, hi float64) {
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	limit := math.MaxFloat64
	if lo < 0 {
		limit = math.MaxFloat64 / 2
	}
	hi = math.Min(niceCeil(hi*1.15), limit)
	if lo < 0 {
		lo = -math.Min(niceCeil(-lo*1.15), limit)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// axisLabel formats y-axis ticks, switching to exponent notation once
// fixed-point labels would crowd the canvas.
func axisLabel(v interface{}) string {
	if f, ok := v.(float64); ok && math.Abs(f) >= 1e6 {
		return strconv.FormatFloat(f, 'g', 3, 64)
	}
	return gochart.FloatValueFormatter(v)
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 0
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}
