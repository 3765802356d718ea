package handlers

import (
	"encoding/json"
	"net/http"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/ledger"
	"salon-ledger/internal/metrics"
	"salon-ledger/internal/models"
)

// ListTransactions returns the transactions visible to the caller: all of
// them for the owner, the caller's own for an employee.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.Visible(identityFrom(r))
	if err != nil {
		h.serviceError(w, "list transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// GetTransaction returns a single visible transaction.
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.ledger.Get(identityFrom(r), id)
	if err != nil {
		h.serviceError(w, "get transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// CreateTransaction files a new income or expense record. Owner entries
// are born approved; employee entries wait for a decision.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.ledger.Create(identityFrom(r), in)
	if err != nil {
		h.serviceError(w, "create transaction", err)
		return
	}

	metrics.TransactionsCreated.WithLabelValues(string(tx.Status)).Inc()
	h.writeJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction edits a transaction's descriptive fields. Approval
// state is untouched by edits.
func (h *Handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var in ledger.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.ledger.Update(identityFrom(r), id, in)
	if err != nil {
		h.serviceError(w, "update transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction removes a transaction, subject to the ownership and
// pending-only rules.
func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.ledger.Delete(identityFrom(r), id); err != nil {
		h.serviceError(w, "delete transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// ApproveTransaction marks a pending transaction approved.
func (h *Handlers) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve", h.ledger.Approve)
}

// RejectTransaction marks a pending transaction rejected.
func (h *Handlers) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject", h.ledger.Reject)
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, action string, fn func(auth.Identity, int64) (*models.Transaction, error)) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := fn(identityFrom(r), id)
	if err != nil {
		h.serviceError(w, action+" transaction", err)
		return
	}

	metrics.ApprovalDecisions.WithLabelValues(action).Inc()
	h.writeJSON(w, http.StatusOK, tx)
}

// Dashboard returns the caller's role-appropriate overview: totals across
// all statuses, pending count, and per-employee shares for the owner; own
// figures and commission for an employee.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(identityFrom(r))
	if err != nil {
		h.serviceError(w, "dashboard stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
