package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"finquery/internal/core"
	"finquery/internal/ledger"
	applog "finquery/internal/log"
)

type transactionRequest struct {
	Amount    json.Number `json:"amount"`
	Category  string      `json:"category"`
	Timestamp string      `json:"timestamp"`
}

type transactionResponse struct {
	ID        int64   `json:"id"`
	Owner     string  `json:"owner"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Timestamp string  `json:"timestamp"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		Owner:     tx.Owner,
		Amount:    tx.Amount.Dollars(),
		Category:  tx.Category,
		Timestamp: tx.Timestamp,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	tx := core.Transaction{
		Owner:     owner,
		Amount:    core.Money{Cents: cents},
		Category:  sanitizeInput(req.Category),
		Timestamp: sanitizeInput(req.Timestamp),
	}
	if err := tx.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.backend.Append(r.Context(), tx)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction create failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	tx.ID = id
	s.invalidateCharts(owner)
	s.httpLog.LogTransactionCreated(r.Context(), owner, tx.Category, tx.Amount.Cents, id)

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	txs, err := s.backend.TransactionsFor(r.Context(), owner)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction list failed", applog.FieldError, err, applog.FieldOwner, owner)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	err = s.backend.Delete(r.Context(), owner, id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction delete failed", applog.FieldError, err, applog.FieldOwner, owner, "id", id)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.invalidateCharts(owner)

	writeJSON(w, http.StatusOK, map[string]string{"detail": "Transaction deleted"})
}
