package http

import (
	"context"
	"fmt"
	"net/http"

	"kakeibo/internal/aggregate"
)

// summary computes every derived view for the current table, served from
// cache until the next mutation. Concurrent misses for the same generation
// share one table read.
func (s *Server) summary(ctx context.Context, p BudgetParams) (aggregate.Summary, error) {
	key := fmt.Sprintf("%d|%s", p.Limit, p.Tag)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}

	gen := s.generation()
	v, err, _ := s.flights.Do(fmt.Sprintf("%d|%s", gen, key), func() (interface{}, error) {
		rows, err := s.store.ListAll(ctx)
		if err != nil {
			return aggregate.Summary{}, err
		}
		sum, err := aggregate.Summarize(rows, p.Tag, p.Limit)
		if err != nil {
			return aggregate.Summary{}, err
		}
		s.cacheSummary(gen, key, sum)
		return sum, nil
	})
	if err != nil {
		return aggregate.Summary{}, err
	}
	return v.(aggregate.Summary), nil
}

func (s *Server) summaryFor(w http.ResponseWriter, r *http.Request) (aggregate.Summary, bool) {
	p, err := ParseBudgetParams(r.URL.Query(), BudgetParams{Tag: s.cfg.BudgetTag, Limit: s.cfg.BudgetLimit})
	if err != nil {
		writeError(w, r, err)
		return aggregate.Summary{}, false
	}
	sum, err := s.summary(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return aggregate.Summary{}, false
	}
	return sum, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summaryFor(w, r); ok {
		writeJSON(w, http.StatusOK, sum)
	}
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summaryFor(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]int64{
			"expense": sum.Totals.Expense,
			"income":  sum.Totals.Income,
			"balance": sum.Balance,
		})
	}
}

func (s *Server) handleTagTotals(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summaryFor(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"tags": sum.Tags})
	}
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summaryFor(w, r); ok {
		writeJSON(w, http.StatusOK, sum.Budget)
	}
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.summaryFor(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"months": sum.Monthly})
	}
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": aggregate.DistinctTags(rows)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Taxonomy)
}
