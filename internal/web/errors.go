package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onecoremx/csvgate/internal/core"
	"github.com/onecoremx/csvgate/internal/logging"
	"github.com/onecoremx/csvgate/internal/store"
)

// ErrorResponse is the JSON body for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse is the JSON body for uploads rejected by
// validation. Findings carry the full report so clients can show what to
// fix.
type ValidationErrorResponse struct {
	Error    string `json:"error"`
	Findings any    `json:"findings"`
	RowCount int    `json:"row_count"`
	Encoding string `json:"encoding"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= 500 {
		logging.FromContext(r.Context()).Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", msg,
		)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// respondServiceError maps core errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *core.ValidationRejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:    "file failed validation",
			Findings: rejected.Report.Findings,
			RowCount: rejected.Report.RowCount,
			Encoding: rejected.Report.Encoding,
		})
	case errors.Is(err, core.ErrMissingFilename),
		errors.Is(err, core.ErrExtensionNotAllowed),
		errors.Is(err, core.ErrEmptyFile):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrFileTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, core.ErrTooManyUploads):
		writeError(w, r, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "file not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
