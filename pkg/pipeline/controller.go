// Package pipeline orchestrates ingestion and reporting:
//
//	read → summarize → persist        (Ingest)
//	get → compose → render            (Report)
//
// Every ingestion walks an explicit state machine (see State), each stage is
// wrapped in an OpenTelemetry span and timed through an Observer. The
// controller keeps no per-request state; the store is the only shared
// resource.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/report"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/storage"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/summary"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tabular"
)

// TracerName identifies spans emitted by the controller.
const TracerName = "github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/pipeline"

// DefaultHistoryLimit is the history length returned when callers pass no limit.
const DefaultHistoryLimit = 5

// ReportRenderer produces documents from datasets. *report.Renderer implements it.
type ReportRenderer interface {
	Render(ctx context.Context, ds dataset.Dataset, format report.Format) (*report.Document, error)
}

// Config wires a Controller. Store and Reports are required.
type Config struct {
	Store          storage.Store
	Reports        ReportRenderer
	ReaderOptions  tabular.Options
	HistoryLimit   int
	Observer       Observer
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
}

// Controller runs the ingestion and report pipelines.
type Controller struct {
	store        storage.Store
	reports      ReportRenderer
	readOpts     tabular.Options
	historyLimit int
	observer     Observer
	tracer       trace.Tracer
	logger       *slog.Logger
}

// New creates a Controller. A nil Observer, TracerProvider or Logger falls
// back to a no-op observer, the global tracer provider and slog.Default().
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if cfg.Reports == nil {
		return nil, errors.New("pipeline: report renderer is required")
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		store:        cfg.Store,
		reports:      cfg.Reports,
		readOpts:     cfg.ReaderOptions,
		historyLimit: cfg.HistoryLimit,
		observer:     cfg.Observer,
		tracer:       cfg.TracerProvider.Tracer(TracerName),
		logger:       cfg.Logger.With("component", "pipeline"),
	}, nil
}

// Ingest reads, summarizes and persists one upload. The returned Ingestion
// is never nil and records the state trail; its Err equals the returned
// error. A failed ingestion leaves the store unchanged.
func (c *Controller) Ingest(ctx context.Context, name string, r io.Reader) (*Ingestion, error) {
	start := time.Now()
	in := newIngestion(name, start)

	ctx, span := c.tracer.Start(ctx, "pipeline.ingest",
		trace.WithAttributes(attribute.String("dataset.name", name)),
	)
	defer span.End()

	in.advance(Reading)
	var rows []dataset.Row
	err := c.stage(ctx, StageRead, func(ctx context.Context) error {
		var err error
		rows, err = tabular.Parse(r, c.readOpts)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("rows", len(rows)))
		return err
	})
	if err != nil {
		return c.failIngestion(span, in, err)
	}

	in.advance(Summarizing)
	var sum dataset.Summary
	err = c.stage(ctx, StageSummarize, func(context.Context) error {
		var err error
		sum, err = summary.Compute(rows)
		return err
	})
	if err != nil {
		return c.failIngestion(span, in, err)
	}

	in.advance(Persisting)
	err = c.stage(ctx, StagePersist, func(ctx context.Context) error {
		var err error
		in.Dataset, err = c.store.Save(ctx, name, sum)
		return err
	})
	if err != nil {
		return c.failIngestion(span, in, fmt.Errorf("persist: %w", err))
	}

	in.advance(Done)
	span.SetAttributes(attribute.String("dataset.id", in.Dataset.ID))
	span.SetStatus(codes.Ok, "")
	c.observer.RecordIngestion(OutcomeSuccess)

	c.logger.Info("dataset ingested",
		"dataset_id", in.Dataset.ID,
		"name", name,
		"count", sum.Count,
		"types", len(sum.TypeDistribution),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return in, nil
}

func (c *Controller) failIngestion(span trace.Span, in *Ingestion, err error) (*Ingestion, error) {
	stage := in.State()
	in.fail(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := outcomeOf(err)
	c.observer.RecordIngestion(outcome)

	if outcome == OutcomeError {
		c.logger.Error("ingestion failed", "name", in.Name, "state", stage, "error", err)
	} else {
		c.logger.Info("ingestion rejected", "name", in.Name, "state", stage, "reason", outcome, "error", err)
	}
	return in, err
}

// History returns the most recent datasets, newest first. A limit <= 0
// uses the configured history limit.
func (c *Controller) History(ctx context.Context, limit int) ([]dataset.Dataset, error) {
	if limit <= 0 {
		limit = c.historyLimit
	}

	ctx, span := c.tracer.Start(ctx, "pipeline.history", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	out, err := c.store.ListRecent(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

// Dataset returns one dataset or an error matching dataset.ErrNotFound.
func (c *Controller) Dataset(ctx context.Context, id string) (dataset.Dataset, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.dataset", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	ds, err := c.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dataset.Dataset{}, err
	}
	return ds, nil
}

// Delete removes one dataset explicitly.
func (c *Controller) Delete(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "pipeline.delete", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	if err := c.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("dataset deleted", "dataset_id", id)
	return nil
}

// Report fetches a dataset and renders it. An evicted or unknown id yields
// an error matching dataset.ErrNotFound; nothing is cached.
func (c *Controller) Report(ctx context.Context, id string, format report.Format) (*report.Document, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.report", trace.WithAttributes(
		attribute.String("dataset.id", id),
		attribute.String("report.format", string(format)),
	))
	defer span.End()

	ds, err := c.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, dataset.ErrNotFound) {
			c.observer.RecordReport(string(format), OutcomeNotFound)
			return nil, err
		}
		span.SetStatus(codes.Error, err.Error())
		c.observer.RecordReport(string(format), OutcomeError)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	var doc *report.Document
	err = c.stage(ctx, StageRender, func(ctx context.Context) error {
		var err error
		doc, err = c.reports.Render(ctx, ds, format)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.observer.RecordReport(string(format), OutcomeError)
		c.logger.Error("report render failed", "dataset_id", id, "format", format, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("report.bytes", len(doc.Body)))
	c.observer.RecordReport(string(format), OutcomeSuccess)
	return doc, nil
}

// stage runs fn inside a child span and reports its duration.
func (c *Controller) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	c.observer.ObserveStage(name, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, dataset.ErrMalformedInput):
		return OutcomeMalformed
	case errors.Is(err, dataset.ErrSchema):
		return OutcomeSchema
	case errors.Is(err, dataset.ErrEmptyDataset):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}
