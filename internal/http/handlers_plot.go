package http

import (
	"net/http"

	applog "finquery/internal/log"
)

// Chart responses are cached per owner and invalidated whenever the owner's
// ledger changes.

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	if data, ok := s.categoryChartCache.Get(owner); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	data, err := s.engine.CategoryChart(r.Context(), owner)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Category chart failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.categoryChartCache.Set(owner, data)
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleTimeChart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	if data, ok := s.timeChartCache.Get(owner); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	data, err := s.engine.TimeChart(r.Context(), owner)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Time chart failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.timeChartCache.Set(owner, data)
	writeJSON(w, http.StatusOK, data)
}
