// Package router configures the chemviz HTTP API.
//
// Routes:
//   - POST   /api/upload              multipart field "file"; 201 with the summary and dataset id
//   - GET    /api/history?limit=N     newest datasets first
//   - GET    /api/datasets/{id}       one dataset
//   - DELETE /api/datasets/{id}       explicit deletion
//   - GET    /api/report/{id}?format= PDF (default) or XLSX download
//   - GET    /healthz                 store health
//   - GET    /metrics                 Prometheus metrics
//
// Trailing slashes are accepted on every route. Errors are JSON bodies of the
// form {"error": "...", "code": "..."}.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/httpx"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/pipeline"
	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/report"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to a temporary file.
const multipartMemory = 8 << 20

// Config wires the router.
type Config struct {
	Controller     *pipeline.Controller
	Ping           func(ctx context.Context) error
	Gatherer       prometheus.Gatherer
	UploadLimiter  *httpx.RateLimiter
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type handlers struct {
	ctrl           *pipeline.Controller
	maxUploadBytes int64
	logger         *slog.Logger
}

// New returns the HTTP handler for the API.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{
		ctrl:           cfg.Controller,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.LoggingMiddleware(logger))
	r.Use(httpx.RecoveryMiddleware(logger))
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, httpx.NewAPIError(http.StatusNotFound, httpx.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, httpx.NewAPIError(http.StatusMethodNotAllowed, httpx.CodeBadRequest, "method not allowed"))
	})

	r.Get("/healthz", httpx.HealthHandlerWithCheck(func(r *http.Request) error {
		if cfg.Ping == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		return cfg.Ping(ctx)
	}))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.UploadLimiter != nil {
				r.Use(cfg.UploadLimiter.Handler)
			}
			r.Post("/upload", h.upload)
		})
		r.Get("/history", h.history)
		r.Get("/datasets/{id}", h.getDataset)
		r.Delete("/datasets/{id}", h.deleteDataset)
		r.Get("/report/{id}", h.report)
	})

	return r
}

// uploadResponse flattens the summary next to the new dataset id.
type uploadResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
	dataset.Summary
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, r, httpx.NewAPIError(http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes)))
			return
		}
		httpx.WriteError(w, r, httpx.NewAPIError(http.StatusBadRequest, httpx.CodeBadRequest, "expected multipart form with a file field"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, httpx.NewAPIError(http.StatusBadRequest, httpx.CodeBadRequest, `missing "file" field`))
		return
	}
	defer file.Close()

	in, err := h.ctrl.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, r, http.StatusCreated, uploadResponse{
		ID:         in.Dataset.ID,
		Name:       in.Dataset.Name,
		UploadedAt: in.Dataset.UploadedAt,
		Summary:    in.Dataset.Summary,
	})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.WriteError(w, r, httpx.NewAPIError(http.StatusBadRequest, httpx.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	datasets, err := h.ctrl.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if datasets == nil {
		datasets = []dataset.Dataset{}
	}
	httpx.WriteJSON(w, r, http.StatusOK, datasets)
}

func (h *handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.ctrl.Dataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, r, http.StatusOK, ds)
}

func (h *handlers) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.WriteError(w, r, httpx.NewAPIError(http.StatusBadRequest, httpx.CodeBadRequest, err.Error()))
		return
	}

	doc, err := h.ctrl.Report(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteAttachment(w, doc.Filename, doc.ContentType, doc.Body)
}

// writeError maps pipeline errors to HTTP responses. Anything that is not a
// client error is reported with a generic message.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *httpx.APIError
	switch {
	case errors.Is(err, dataset.ErrMalformedInput):
		apiErr = httpx.NewAPIError(http.StatusBadRequest, httpx.CodeMalformedInput, err.Error())
	case errors.Is(err, dataset.ErrSchema):
		apiErr = httpx.NewAPIError(http.StatusUnprocessableEntity, httpx.CodeSchemaError, err.Error())
	case errors.Is(err, dataset.ErrEmptyDataset):
		apiErr = httpx.NewAPIError(http.StatusUnprocessableEntity, httpx.CodeEmptyDataset, err.Error())
	case errors.Is(err, dataset.ErrNotFound):
		apiErr = httpx.NewAPIError(http.StatusNotFound, httpx.CodeNotFound, err.Error())
	default:
		// Render failures are already logged by the pipeline with their stage.
		if !errors.Is(err, dataset.ErrRender) {
			h.logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}
		apiErr = httpx.NewAPIError(http.StatusInternalServerError, httpx.CodeInternal, "internal server error")
	}
	httpx.WriteError(w, r, apiErr)
}
