// Package report builds the downloadable revenue workbook. All revenue
// figures here are computed over approved transactions only; the live
// dashboard intentionally uses the wider all-status view.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"salon-ledger/internal/models"

	"github.com/xuri/excelize/v2"
)

// Exporter renders employee revenue workbooks.
type Exporter struct {
	now func() time.Time
}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// FileName returns the suggested download name for a workbook generated now.
func (ex *Exporter) FileName() string {
	return fmt.Sprintf("revenue-report_%s.xlsx", ex.now().Format("2006-01-02_15-04"))
}

// WriteTo renders the workbook for the given roster and transaction set.
func (ex *Exporter) WriteTo(w io.Writer, employees []models.Employee, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := ex.summarySheet(f, employees, txs); err != nil {
		return err
	}
	if err := ex.employeeDetailSheet(f, employees, txs); err != nil {
		return err
	}
	if err := ex.monthlySheet(f, txs); err != nil {
		return err
	}
	if err := ex.transactionSheet(f, employees, txs); err != nil {
		return err
	}

	// Drop the default sheet created by NewFile.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	_, err := f.WriteTo(w)
	return err
}

func approved(txs []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for _, t := range txs {
		if t.Status == models.StatusApproved {
			out = append(out, t)
		}
	}
	return out
}

func (ex *Exporter) summarySheet(f *excelize.File, employees []models.Employee, txs []models.Transaction) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	var income, expense float64
	for _, t := range approved(txs) {
		switch t.Kind {
		case models.KindIncome:
			income += t.Amount
		case models.KindExpense:
			expense += t.Amount
		}
	}

	rows := [][]any{
		{"EMPLOYEE REVENUE REPORT"},
		{"Generated:", ex.now().Format("2006-01-02 15:04")},
		{},
		{"OVERVIEW"},
		{"Employees:", len(employees)},
		{"Transactions:", len(txs)},
		{"Total revenue:", income},
		{"Total expenses:", expense},
		{"Net profit:", income - expense},
		{},
		{"EMPLOYEES"},
		{"#", "Name", "Position", "Percentage", "Revenue", "Share", "Transactions"},
	}

	for i, emp := range employees {
		var revenue float64
		var count int
		for _, t := range approved(txs) {
			if t.Kind == models.KindIncome && t.EmployeeID == emp.ID {
				revenue += t.Amount
				count++
			}
		}
		rows = append(rows, []any{
			i + 1, emp.Name, emp.Position, emp.Percentage,
			revenue, revenue * emp.Percentage / 100, count,
		})
	}

	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "G", 18)
}

func (ex *Exporter) employeeDetailSheet(f *excelize.File, employees []models.Employee, txs []models.Transaction) error {
	const sheet = "Employee Detail"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"REVENUE BY EMPLOYEE"},
		{},
		{"Employee", "Date", "Kind", "Description", "Amount", "Status", "Created"},
	}
	for _, emp := range employees {
		for _, t := range txs {
			if t.EmployeeID != emp.ID {
				continue
			}
			rows = append(rows, []any{
				emp.Name,
				t.Date.Format("2006-01-02"),
				string(t.Kind),
				t.Description,
				t.Amount,
				string(t.Status),
				t.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
	}

	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "D", "D", 36)
}

func (ex *Exporter) monthlySheet(f *excelize.File, txs []models.Transaction) error {
	const sheet = "Monthly"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	type bucket struct {
		income, expense float64
	}
	months := make(map[string]*bucket)
	var keys []string
	for _, t := range approved(txs) {
		key := t.Date.Format("2006-01")
		b, ok := months[key]
		if !ok {
			b = &bucket{}
			months[key] = b
			keys = append(keys, key)
		}
		switch t.Kind {
		case models.KindIncome:
			b.income += t.Amount
		case models.KindExpense:
			b.expense += t.Amount
		}
	}
	sort.Strings(keys)

	rows := [][]any{
		{"REVENUE BY MONTH"},
		{},
		{"Month", "Revenue", "Expenses", "Net"},
	}
	for _, key := range keys {
		b := months[key]
		rows = append(rows, []any{key, b.income, b.expense, b.income - b.expense})
	}

	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "D", 16)
}

func (ex *Exporter) transactionSheet(f *excelize.File, employees []models.Employee, txs []models.Transaction) error {
	const sheet = "Transactions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	names := make(map[int64]string, len(employees))
	for _, emp := range employees {
		names[emp.ID] = emp.Name
	}

	rows := [][]any{
		{"ALL TRANSACTIONS"},
		{},
		{"#", "Date", "Kind", "Description", "Employee", "Amount", "Status", "Approved By", "Approved At"},
	}
	for i, t := range txs {
		approvedAt := ""
		if t.ApprovedAt != nil {
			approvedAt = t.ApprovedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []any{
			i + 1,
			t.Date.Format("2006-01-02"),
			string(t.Kind),
			t.Description,
			names[t.EmployeeID],
			t.Amount,
			string(t.Status),
			t.ApprovedBy,
			approvedAt,
		})
	}

	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "D", "E", 28)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
