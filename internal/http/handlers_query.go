package http

import (
	"net/http"
	"strings"

	applog "finquery/internal/log"
)

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// handleQuery resolves a natural-language question against the caller's
// ledger. Resolution failures from the assistant come back as display
// strings, so the only error path here is a ledger fault.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusBadRequest, "Query is required")
		return
	}

	answer, err := s.engine.Resolve(r.Context(), owner, req.Query)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Query resolution failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Response: answer})
}
