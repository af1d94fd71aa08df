package http

import (
	"errors"
	"io"
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/ingest"
	applog "kakeibo/internal/log"
)

// handleReceipt reads a multipart "image" field and returns the suggested
// transaction. Nothing is stored.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, r, ingest.ErrExtractorUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, badRequest("expected multipart form with an image field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, badRequest("missing image field"))
		return
	}
	defer file.Close()

	img, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, badRequest("could not read image"))
		return
	}

	candidate, err := s.assistant.Suggest(r.Context(), img)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Receipt candidate suggested: "+core.FormatYen(candidate.Amount),
		applog.FieldOperation, applog.OpSuggest,
		applog.FieldAmountYen, candidate.Amount)
	writeJSON(w, http.StatusOK, map[string]any{"candidate": candidate})
}
