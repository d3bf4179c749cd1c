package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/repository"
	"github.com/Lixing-Zhang/tailortech/internal/service"
)

// TransactionHandler serves the list and status endpoints shared by
// /requests and /orders. kind selects which transactions it sees.
type TransactionHandler struct {
	txns *service.TransactionService
	kind repository.TransactionKind
	log  *zap.Logger
}

// NewTransactionHandler creates a transaction handler for kind
func NewTransactionHandler(txns *service.TransactionService, kind repository.TransactionKind, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{txns: txns, kind: kind, log: log}
}

// ListForUser handles GET /{requests|orders}/get-user-*/{id}
func (h *TransactionHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok {
		return
	}

	txns, err := h.txns.ListForUser(r.Context(), principal(r), id, h.kind)
	if err != nil {
		writeServiceError(w, err, "list user transactions", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, txns, h.log)
}

// ListForTailor handles GET /{requests|orders}/get-tailor-*/{id}
func (h *TransactionHandler) ListForTailor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.log)
	if !ok {
		return
	}

	txns, err := h.txns.ListForTailor(r.Context(), principal(r), id, h.kind)
	if err != nil {
		writeServiceError(w, err, "list tailor transactions", h.log)
		return
	}
	WriteJSON(w, http.StatusOK, txns, h.log)
}

// UpdateStatus handles POST /{requests|orders}/update-status
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	txn, err := h.txns.UpdateStatus(r.Context(), principal(r), h.kind, req)
	if err != nil {
		writeServiceError(w, err, "update transaction status", h.log)
		return
	}
	h.log.Info("transaction status updated", zap.Int64("transaction_id", txn.ID), zap.String("status", string(txn.Status)))
	WriteJSON(w, http.StatusOK, txn, h.log)
}

// ConfirmReceived handles POST /{requests|orders}/confirm-received
func (h *TransactionHandler) ConfirmReceived(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmReceivedRequest
	if !decodeJSON(w, r, &req, h.log) {
		return
	}

	txn, err := h.txns.ConfirmReceived(r.Context(), principal(r), h.kind, req)
	if err != nil {
		writeServiceError(w, err, "confirm received", h.log)
		return
	}
	h.log.Info("transaction finished", zap.Int64("transaction_id", txn.ID), zap.Int64("tailor_id", txn.TailorID))
	WriteJSON(w, http.StatusOK, txn, h.log)
}
