// Package report turns a persisted dataset into a downloadable document with
// a metrics table and two charts.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/chart"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// Format is a document encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned by ParseFormat for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// ParseFormat maps a query value to a Format. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// Document is a finished report.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Images holds the encoded charts of one report.
type Images struct {
	Distribution []byte
	Averages     []byte
}

// Renderer produces report documents. It performs no I/O beyond calling the
// chart renderer and is safe for concurrent use.
type Renderer struct {
	charts chart.Renderer
	logger *slog.Logger
}

// NewRenderer creates a report renderer. A nil chart renderer uses the
// default PNG renderer.
func NewRenderer(charts chart.Renderer, logger *slog.Logger) *Renderer {
	if charts == nil {
		charts = chart.NewPNGRenderer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		charts: charts,
		logger: logger.With("component", "report"),
	}
}

// Render builds the document for ds in the requested format. On failure it
// returns a *dataset.RenderError and no document.
func (r *Renderer) Render(ctx context.Context, ds dataset.Dataset, format Format) (*Document, error) {
	content, err := Compose(ds)
	if err != nil {
		return nil, err
	}

	images, err := r.renderCharts(ctx, content)
	if err != nil {
		return nil, &dataset.RenderError{DatasetID: ds.ID, Stage: "chart", Err: err}
	}

	var body []byte
	switch format {
	case FormatPDF:
		body, err = writePDF(ds, content, images)
	case FormatXLSX:
		body, err = writeXLSX(ds, content, images)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &dataset.RenderError{DatasetID: ds.ID, Stage: string(format), Err: err}
	}

	r.logger.Debug("report rendered",
		"dataset_id", ds.ID,
		"format", format,
		"bytes", len(body),
	)

	return &Document{
		Filename:    Filename(ds, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// renderCharts draws both charts concurrently.
func (r *Renderer) renderCharts(ctx context.Context, c Content) (Images, error) {
	var images Images
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := r.charts.Render(chart.Pie, c.Distribution)
		if err != nil {
			return fmt.Errorf("distribution chart: %w", err)
		}
		images.Distribution = img
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := r.charts.Render(chart.Bar, c.Averages)
		if err != nil {
			return fmt.Errorf("averages chart: %w", err)
		}
		images.Averages = img
		return nil
	})

	if err := g.Wait(); err != nil {
		return Images{}, err
	}
	return images, nil
}

// Filename returns "chemviz_report_<name>.<ext>", where name is the dataset
// name without its extension and with unsafe characters replaced. The ID is
// used when nothing usable remains.
func Filename(ds dataset.Dataset, format Format) string {
	base := strings.TrimSuffix(filepath.Base(ds.Name), filepath.Ext(ds.Name))
	clean := strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base), "_")
	if clean == "" || ds.Name == "" {
		clean = ds.ID
	}
	return fmt.Sprintf("chemviz_report_%s.%s", clean, format)
}
