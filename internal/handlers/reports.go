package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"salon-ledger/internal/models"
)

// MonthlyReport returns the owner's month summary. Defaults to the
// current month when ?year= and ?month= are absent.
func (h *Handlers) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		h.writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	rep, err := h.ledger.Monthly(identityFrom(r), year, month)
	if err != nil {
		h.serviceError(w, "monthly report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

// ExportReport streams the revenue workbook as an xlsx download. Revenue
// figures in the workbook count approved transactions only.
func (h *Handlers) ExportReport(w http.ResponseWriter, r *http.Request) {
	employees, err := h.ledger.ListEmployees(identityFrom(r))
	if err != nil {
		h.serviceError(w, "export report", err)
		return
	}
	txs, err := h.ledger.Visible(identityFrom(r))
	if err != nil {
		h.serviceError(w, "export report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.FileName()))
	if err := h.exporter.WriteTo(w, employees, txs); err != nil {
		h.log.Error("write workbook", "error", err)
	}
}

// backupEmployee is an employee record in a backup file. The API drops
// login keys, but a backup must round-trip them or a restore would lock
// everyone out.
type backupEmployee struct {
	models.Employee
	LoginKey string `json:"login_key"`
}

// backup is the JSON shape of a full database export.
type backup struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	Employees    []backupEmployee     `json:"employees"`
	Transactions []models.Transaction `json:"transactions"`
	Products     []models.Product     `json:"products"`
	Sales        []models.Sale        `json:"sales"`
}

func toBackupEmployees(employees []models.Employee) []backupEmployee {
	out := make([]backupEmployee, len(employees))
	for i, e := range employees {
		out[i] = backupEmployee{Employee: e, LoginKey: e.LoginKey}
	}
	return out
}

func fromBackupEmployees(employees []backupEmployee) []models.Employee {
	out := make([]models.Employee, len(employees))
	for i, e := range employees {
		out[i] = e.Employee
		out[i].LoginKey = e.LoginKey
	}
	return out
}

// DatabaseInfo reports schema version, record counts, and approved-only
// totals.
func (h *Handlers) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	version, err := h.db.Version()
	if err != nil {
		h.serverError(w, "database version", err)
		return
	}
	employees, err := h.db.CountEmployees()
	if err != nil {
		h.serverError(w, "count employees", err)
		return
	}
	transactions, err := h.db.CountTransactions()
	if err != nil {
		h.serverError(w, "count transactions", err)
		return
	}

	txs, err := h.db.ListTransactions()
	if err != nil {
		h.serverError(w, "list transactions", err)
		return
	}
	var income, expenses float64
	for _, tx := range txs {
		if tx.Status != models.StatusApproved {
			continue
		}
		switch tx.Kind {
		case models.KindIncome:
			income += tx.Amount
		case models.KindExpense:
			expenses += tx.Amount
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"version":        version,
		"employees":      employees,
		"transactions":   transactions,
		"total_income":   income,
		"total_expenses": expenses,
	})
}

// ExportDatabase returns the entire dataset as a JSON backup.
func (h *Handlers) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	version, err := h.db.Version()
	if err != nil {
		h.serverError(w, "database version", err)
		return
	}
	employees, err := h.db.ListEmployees()
	if err != nil {
		h.serverError(w, "list employees", err)
		return
	}
	txs, err := h.db.ListTransactions()
	if err != nil {
		h.serverError(w, "list transactions", err)
		return
	}
	products, err := h.db.ListProducts()
	if err != nil {
		h.serverError(w, "list products", err)
		return
	}
	allSales, err := h.db.ListSales()
	if err != nil {
		h.serverError(w, "list sales", err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		time.Now().Format("salon-backup_2006-01-02.json")))
	h.writeJSON(w, http.StatusOK, backup{
		Version:      version,
		ExportedAt:   time.Now(),
		Employees:    toBackupEmployees(employees),
		Transactions: txs,
		Products:     products,
		Sales:        allSales,
	})
}

// ImportDatabase replaces the entire dataset with an uploaded backup.
// Each collection is swapped in a single transaction; a bad backup
// leaves that collection untouched.
func (h *Handlers) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	var b backup
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid backup file")
		return
	}

	if err := h.db.ReplaceEmployees(fromBackupEmployees(b.Employees)); err != nil {
		h.serverError(w, "import employees", err)
		return
	}
	if err := h.db.ReplaceTransactions(b.Transactions); err != nil {
		h.serverError(w, "import transactions", err)
		return
	}
	if err := h.db.ReplaceProducts(b.Products); err != nil {
		h.serverError(w, "import products", err)
		return
	}
	if err := h.db.ReplaceSales(b.Sales); err != nil {
		h.serverError(w, "import sales", err)
		return
	}

	h.log.Info("database imported",
		"employees", len(b.Employees),
		"transactions", len(b.Transactions),
		"products", len(b.Products),
		"sales", len(b.Sales))
	h.writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}
