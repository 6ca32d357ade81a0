package httpx

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// Error codes returned in APIError.Code.
const (
	CodeMalformedInput  = "MALFORMED_INPUT"
	CodeSchemaError     = "SCHEMA_ERROR"
	CodeEmptyDataset    = "EMPTY_DATASET"
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

// APIError is the JSON error body: {"error": "...", "code": "..."}.
// It implements render.Renderer so handlers can pass it to render.Render.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

// NewAPIError creates an APIError.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func (e *APIError) Error() string { return e.Message }

// Render sets the response status before chi/render encodes the body.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

// WriteError renders an APIError.
func WriteError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	if err := render.Render(w, r, apiErr); err != nil {
		slog.Error("failed to write error response", "error", err, "code", apiErr.Code)
	}
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// WriteAttachment writes body as a file download.
func WriteAttachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write attachment", "error", err, "filename", filename)
	}
}

// HealthHandlerWithCheck responds 200 "OK", or 503 with an APIError when
// check fails.
func HealthHandlerWithCheck(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r); err != nil {
			WriteError(w, r, NewAPIError(http.StatusServiceUnavailable, CodeUnavailable, fmt.Sprintf("unhealthy: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	}
}
