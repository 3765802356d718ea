package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"salon-ledger/internal/inventory"
)

// ListProducts returns the product catalog, optionally filtered by
// category and a name search term.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.inventory.List(identityFrom(r), q.Get("category"), q.Get("search"))
	if err != nil {
		h.serviceError(w, "list products", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// GetProduct returns a single product.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.inventory.Get(identityFrom(r), id)
	if err != nil {
		h.serviceError(w, "get product", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// CreateProduct adds a product to the catalog.
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.inventory.Create(identityFrom(r), in)
	if err != nil {
		h.serviceError(w, "create product", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct edits a product record.
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var in inventory.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.inventory.Update(identityFrom(r), id, in)
	if err != nil {
		h.serviceError(w, "update product", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeleteProduct removes a product from the catalog.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.inventory.Delete(identityFrom(r), id); err != nil {
		h.serviceError(w, "delete product", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

type stockRequest struct {
	Quantity int `json:"quantity"`
	Stock    int `json:"stock"`
}

// ReceiveStock adds received quantity to a product's stock.
func (h *Handlers) ReceiveStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.inventory.Receive(identityFrom(r), id, req.Quantity)
	if err != nil {
		h.serviceError(w, "receive stock", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// SetStock overwrites a product's stock count, for corrections after a
// physical recount.
func (h *Handlers) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.inventory.SetStock(identityFrom(r), id, req.Stock)
	if err != nil {
		h.serviceError(w, "set stock", err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// LowStockProducts lists products at or below their minimum stock level.
func (h *Handlers) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.LowStock(identityFrom(r))
	if err != nil {
		h.serviceError(w, "list low stock", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// ProductStats summarizes the catalog: counts, inventory value, and top
// products by stock value.
func (h *Handlers) ProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inventory.GetStats(identityFrom(r))
	if err != nil {
		h.serviceError(w, "product stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
