package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires all endpoints. Three tiers: public, authenticated, and
// owner-only.
func (h *Handlers) Router(withMetrics bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if withMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Get("/login/preview", h.LoginPreview)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.SessionStatus)
		r.Post("/session/extend", h.ExtendSession)

		// Any logged-in role. Services narrow what each role can see
		// and touch.
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Get("/dashboard", h.Dashboard)

			r.Get("/transactions", h.ListTransactions)
			r.Post("/transactions", h.CreateTransaction)
			r.Get("/transactions/{id}", h.GetTransaction)
			r.Put("/transactions/{id}", h.UpdateTransaction)
			r.Delete("/transactions/{id}", h.DeleteTransaction)
		})

		// Owner only.
		r.Group(func(r chi.Router) {
			r.Use(h.RequireOwner)

			r.Post("/transactions/{id}/approve", h.ApproveTransaction)
			r.Post("/transactions/{id}/reject", h.RejectTransaction)

			r.Get("/employees", h.ListEmployees)
			r.Post("/employees", h.CreateEmployee)
			r.Put("/employees/{id}", h.UpdateEmployee)
			r.Delete("/employees/{id}", h.DeleteEmployee)

			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Get("/products/low-stock", h.LowStockProducts)
			r.Get("/products/stats", h.ProductStats)
			r.Get("/products/{id}", h.GetProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Post("/products/{id}/receive", h.ReceiveStock)
			r.Put("/products/{id}/stock", h.SetStock)

			r.Get("/sales", h.ListSales)
			r.Post("/sales", h.RecordSale)
			r.Delete("/sales/{id}", h.DeleteSale)
			r.Get("/sales/revenue", h.SalesRevenue)
			r.Get("/sales/stats", h.SalesStats)

			r.Get("/reports/monthly", h.MonthlyReport)
			r.Get("/reports/export", h.ExportReport)

			r.Get("/database/info", h.DatabaseInfo)
			r.Get("/database/export", h.ExportDatabase)
			r.Post("/database/import", h.ImportDatabase)
		})
	})

	return r
}
