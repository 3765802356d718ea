package handlers

import (
	"encoding/json"
	"net/http"

	"salon-ledger/internal/ledger"
)

// ListEmployees returns the employee roster. Login keys never leave the
// server; the JSON tag on the model drops them.
func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.ledger.ListEmployees(identityFrom(r))
	if err != nil {
		h.serviceError(w, "list employees", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

// CreateEmployee registers a new employee with a unique login key.
func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in ledger.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.ledger.CreateEmployee(identityFrom(r), in)
	if err != nil {
		h.serviceError(w, "create employee", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, e)
}

// UpdateEmployee edits an employee record, including key rotation.
func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	var in ledger.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.ledger.UpdateEmployee(identityFrom(r), id, in)
	if err != nil {
		h.serviceError(w, "update employee", err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

// DeleteEmployee removes an employee. Their transactions go with them.
func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid employee id")
		return
	}

	if err := h.ledger.DeleteEmployee(identityFrom(r), id); err != nil {
		h.serviceError(w, "delete employee", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
