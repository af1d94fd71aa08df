package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/ingest"
	applog "kakeibo/internal/log"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// requestError is a malformed request that never reached the store.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message, field string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message, Field: field}})
}

// classify maps an error to its status and code.
func classify(err error) (status int, code, field string) {
	var ve *core.ValidationError
	var re *requestError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large", ""
	case errors.As(err, &re):
		return http.StatusBadRequest, "bad_request", ""
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation_error", ve.Field
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found", ""
	case errors.Is(err, core.ErrStorage):
		return http.StatusServiceUnavailable, "storage_unavailable", ""
	case errors.Is(err, ingest.ErrExtractorUnavailable):
		return http.StatusServiceUnavailable, "ocr_unavailable", ""
	}
	return http.StatusInternalServerError, "internal_error", ""
}

// writeError renders err as the API error body. Server-side failures are
// logged with the request logger; their message is not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, field := classify(err)
	msg := err.Error()

	if status >= 500 {
		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithErrorType(errorType(code))
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, applog.OpRequest, fields)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeErrorBody(w, status, code, msg, field)
}

func errorType(code string) string {
	switch code {
	case "storage_unavailable":
		return applog.ErrorTypeStorage
	case "ocr_unavailable":
		return applog.ErrorTypeNetwork
	}
	return applog.ErrorTypeInternal
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	writeErrorBody(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.", "")
}
