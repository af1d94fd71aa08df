package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
)

type transactionsResponse struct {
	Transactions []core.Entry `json:"transactions"`
	Count        int          `json:"count"`
}

// handleListTransactions lists the table with positions. tag filters by exact
// match (present but empty selects untagged rows); order=desc lists newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries := ledger.Entries(rows)
	query := r.URL.Query()
	if query.Has("tag") {
		entries = aggregate.FilterEntriesByTag(entries, query.Get("tag"))
	}
	switch strings.ToLower(query.Get("order")) {
	case "", "asc":
	case "desc":
		entries = aggregate.NewestFirst(entries)
	default:
		writeError(w, r, badRequest("order must be asc or desc"))
		return
	}

	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: entries, Count: len(entries)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r, maxJSONBody)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := p.Transaction(core.Today(s.now()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.Append(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()

	if t.Category != "" && !s.cfg.Taxonomy.Contains(t.Kind, t.Category) {
		s.logger.DebugContext(r.Context(), "Category outside taxonomy",
			applog.FieldCategory, t.Category, applog.FieldKind, t.Kind)
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransactionAppended(r.Context(), t.Amount, t.Kind.String(), t.Category, t.Tag)
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": t})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	pos, err := parsePosition(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteAt(r.Context(), pos); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()

	s.logger.InfoContext(r.Context(), "Transaction deleted", applog.FieldPosition, pos)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": pos, "undo_available": true})
}

func (s *Server) handleUndoStatus(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.UndoAvailable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": ok})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	restored, err := s.store.UndoLastDelete(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if restored {
		s.invalidate()
		s.logger.InfoContext(r.Context(), "Last delete undone")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"restored": restored})
}
