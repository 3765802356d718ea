package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"salon-ledger/internal/sales"
)

// ListSales returns all recorded sales, newest first.
func (h *Handlers) ListSales(w http.ResponseWriter, r *http.Request) {
	out, err := h.sales.List(identityFrom(r))
	if err != nil {
		h.serviceError(w, "list sales", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sales": out})
}

// RecordSale registers a sale and consumes the sold stock atomically. A
// sale that would drive any product's stock negative is refused whole.
func (h *Handlers) RecordSale(w http.ResponseWriter, r *http.Request) {
	var in sales.SaleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.sales.Record(identityFrom(r), in)
	if err != nil {
		h.serviceError(w, "record sale", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sale)
}

// DeleteSale removes a sale record. Stock is not restored; corrections
// go through the stock endpoints.
func (h *Handlers) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	if err := h.sales.Delete(identityFrom(r), id); err != nil {
		h.serviceError(w, "delete sale", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// SalesRevenue reports revenue for a period selected by query params:
// ?date=YYYY-MM-DD for a day, ?year=&month= for a month, none for today.
func (h *Handlers) SalesRevenue(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	q := r.URL.Query()

	if d := q.Get("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		rev, err := h.sales.Daily(id, day)
		if err != nil {
			h.serviceError(w, "daily revenue", err)
			return
		}
		h.writeJSON(w, http.StatusOK, rev)
		return
	}

	if q.Get("year") != "" || q.Get("month") != "" {
		now := time.Now()
		year := queryInt(r, "year", now.Year())
		month := queryInt(r, "month", int(now.Month()))
		rev, err := h.sales.Monthly(id, year, month)
		if err != nil {
			h.serviceError(w, "monthly revenue", err)
			return
		}
		h.writeJSON(w, http.StatusOK, rev)
		return
	}

	rev, err := h.sales.Daily(id, time.Now())
	if err != nil {
		h.serviceError(w, "daily revenue", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rev)
}

// SalesStats returns the overall sales roll-up with month-over-month
// growth and the top selling products.
func (h *Handlers) SalesStats(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	stats, err := h.sales.Overall(id)
	if err != nil {
		h.serviceError(w, "sales stats", err)
		return
	}

	top, err := h.sales.TopSellers(id, queryInt(r, "limit", 5))
	if err != nil {
		h.serviceError(w, "top sellers", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "top_products": top})
}
