// Package ledger implements the income/expense book: transaction
// lifecycle, the employee roster, and the aggregate figures derived from
// them. Every mutating operation re-checks the permission predicate
// itself; callers hiding buttons is not a substitute.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"
)

var (
	// ErrDenied means the permission predicate refused the action. The
	// operation is a hard no-op, not a retry condition.
	ErrDenied = errors.New("ledger: permission denied")
	// ErrInvalid means validation failed; no state was mutated.
	ErrInvalid = errors.New("ledger: invalid input")
	// ErrNotFound mirrors the storage sentinel for callers.
	ErrNotFound = storage.ErrNotFound
)

// Service owns ledger operations on top of the storage layer.
type Service struct {
	db       *storage.DB
	ownerKey string

	now func() time.Time
}

// NewService creates a ledger service. ownerKey is needed only to reject
// employee login keys that would collide with it.
func NewService(db *storage.DB, ownerKey string) *Service {
	return &Service{db: db, ownerKey: ownerKey, now: time.Now}
}

// ===== Transactions =====

// TransactionInput carries the editable fields of a transaction.
type TransactionInput struct {
	Kind        models.TransactionKind `json:"kind"`
	Amount      float64                `json:"amount"`
	Description string                 `json:"description"`
	EmployeeID  int64                  `json:"employee_id"`
	Date        time.Time              `json:"date"`
}

func (in *TransactionInput) validate() error {
	if in.Kind != models.KindIncome && in.Kind != models.KindExpense {
		return fmt.Errorf("%w: kind must be income or expense", ErrInvalid)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if in.EmployeeID == 0 {
		return fmt.Errorf("%w: employee is required", ErrInvalid)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	return nil
}

// Create files a new transaction. An employee may file for themself only.
// Owner-created transactions are born approved with the owner recorded as
// approver; employee-created transactions are born pending.
func (s *Service) Create(id auth.Identity, in TransactionInput) (*models.Transaction, error) {
	if !id.Authenticated() {
		return nil, ErrDenied
	}
	if !id.IsOwner() && in.EmployeeID != id.EmployeeID() {
		return nil, ErrDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.db.GetEmployee(in.EmployeeID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no such employee", ErrInvalid)
		}
		return nil, err
	}

	now := s.now()
	t := &models.Transaction{
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		EmployeeID:  in.EmployeeID,
		Date:        in.Date,
		Status:      models.StatusPending,
		CreatedAt:   now,
	}
	if id.IsOwner() {
		t.Status = models.StatusApproved
		t.ApprovedBy = id.Name
		t.ApprovedAt = &now
	}

	return s.db.CreateTransaction(t)
}

// Update edits a transaction's fields. Approval state is untouched; an
// owner edit to an approved transaction does not send it back to pending.
func (s *Service) Update(id auth.Identity, txID int64, in TransactionInput) (*models.Transaction, error) {
	t, err := s.db.GetTransaction(txID)
	if err != nil {
		return nil, err
	}
	if !auth.CanEdit(id, *t) {
		return nil, ErrDenied
	}
	if !id.IsOwner() && in.EmployeeID != id.EmployeeID() {
		return nil, ErrDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	t.Kind = in.Kind
	t.Amount = in.Amount
	t.Description = strings.TrimSpace(in.Description)
	t.EmployeeID = in.EmployeeID
	t.Date = in.Date
	if err := s.db.UpdateTransaction(t); err != nil {
		return nil, err
	}
	return s.db.GetTransaction(txID)
}

// Delete removes a transaction. Employees may remove only their own
// pending transactions; decided ones are the owner's to delete.
func (s *Service) Delete(id auth.Identity, txID int64) error {
	t, err := s.db.GetTransaction(txID)
	if err != nil {
		return err
	}
	if !auth.CanDelete(id, *t) {
		return ErrDenied
	}
	return s.db.DeleteTransaction(txID)
}

// Approve moves a pending transaction to approved. Only the owner may
// decide, and only while the transaction is pending; both states out of
// pending are terminal.
func (s *Service) Approve(id auth.Identity, txID int64) (*models.Transaction, error) {
	return s.decide(id, txID, models.StatusApproved)
}

// Reject moves a pending transaction to rejected.
func (s *Service) Reject(id auth.Identity, txID int64) (*models.Transaction, error) {
	return s.decide(id, txID, models.StatusRejected)
}

func (s *Service) decide(id auth.Identity, txID int64, status models.TransactionStatus) (*models.Transaction, error) {
	t, err := s.db.GetTransaction(txID)
	if err != nil {
		return nil, err
	}
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if t.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: transaction is %s, not pending", ErrInvalid, t.Status)
	}

	if err := s.db.SetTransactionStatus(txID, status, id.Name, s.now()); err != nil {
		return nil, err
	}
	return s.db.GetTransaction(txID)
}

// Visible returns the transactions the identity may see, in insertion
// order. Unauthenticated callers get nothing.
func (s *Service) Visible(id auth.Identity) ([]models.Transaction, error) {
	switch {
	case id.IsOwner():
		return s.db.ListTransactions()
	case id.Authenticated():
		return s.db.ListTransactionsByEmployee(id.EmployeeID())
	default:
		return nil, nil
	}
}

// Get returns a single transaction if the identity may see it.
func (s *Service) Get(id auth.Identity, txID int64) (*models.Transaction, error) {
	t, err := s.db.GetTransaction(txID)
	if err != nil {
		return nil, err
	}
	if len(auth.Visible(id, []models.Transaction{*t})) == 0 {
		return nil, ErrDenied
	}
	return t, nil
}

// ===== Employees =====

// EmployeeInput carries the editable fields of an employee record.
type EmployeeInput struct {
	Name       string  `json:"name"`
	Position   string  `json:"position"`
	Percentage float64 `json:"percentage"`
	LoginKey   string  `json:"login_key"`
}

// CreateEmployee adds a roster entry. Owner only.
func (s *Service) CreateEmployee(id auth.Identity, in EmployeeInput) (*models.Employee, error) {
	if !auth.CanManageEmployees(id) {
		return nil, ErrDenied
	}
	if err := s.validateEmployee(in, 0); err != nil {
		return nil, err
	}
	return s.db.CreateEmployee(strings.TrimSpace(in.Name), strings.TrimSpace(in.Position), in.Percentage, in.LoginKey)
}

// UpdateEmployee rewrites a roster entry. Owner only.
func (s *Service) UpdateEmployee(id auth.Identity, employeeID int64, in EmployeeInput) (*models.Employee, error) {
	if !auth.CanManageEmployees(id) {
		return nil, ErrDenied
	}
	emp, err := s.db.GetEmployee(employeeID)
	if err != nil {
		return nil, err
	}
	if err := s.validateEmployee(in, employeeID); err != nil {
		return nil, err
	}

	emp.Name = strings.TrimSpace(in.Name)
	emp.Position = strings.TrimSpace(in.Position)
	emp.Percentage = in.Percentage
	emp.LoginKey = in.LoginKey
	if err := s.db.UpdateEmployee(emp); err != nil {
		return nil, err
	}
	return emp, nil
}

// DeleteEmployee removes a roster entry and, with it, the employee's
// transactions. Owner only.
func (s *Service) DeleteEmployee(id auth.Identity, employeeID int64) error {
	if !auth.CanManageEmployees(id) {
		return ErrDenied
	}
	return s.db.DeleteEmployee(employeeID)
}

// ListEmployees returns the roster. Owner only.
func (s *Service) ListEmployees(id auth.Identity) ([]models.Employee, error) {
	if !auth.CanManageEmployees(id) {
		return nil, ErrDenied
	}
	return s.db.ListEmployees()
}

// ValidateEmployeeKey enforces the login-key uniqueness invariant without
// a session, for operator tooling. excludeID skips the record being edited.
func (s *Service) ValidateEmployeeKey(key string, excludeID int64) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: login key is required", ErrInvalid)
	}
	if key == s.ownerKey {
		return fmt.Errorf("%w: login key is reserved", ErrInvalid)
	}
	other, err := s.db.GetEmployeeByLoginKey(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if other.ID != excludeID {
		return fmt.Errorf("%w: login key already in use", ErrInvalid)
	}
	return nil
}

func (s *Service) validateEmployee(in EmployeeInput, excludeID int64) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(in.Position) == "" {
		return fmt.Errorf("%w: position is required", ErrInvalid)
	}
	if in.Percentage < 0 || in.Percentage > 100 {
		return fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalid)
	}
	return s.ValidateEmployeeKey(in.LoginKey, excludeID)
}

// ===== Aggregates =====

// EmployeeShare is one employee's commission line on the dashboard.
type EmployeeShare struct {
	EmployeeID   int64   `json:"employee_id"`
	Name         string  `json:"name"`
	Position     string  `json:"position"`
	Percentage   float64 `json:"percentage"`
	Income       float64 `json:"income"`
	Share        float64 `json:"share"`
	Transactions int     `json:"transactions"`
}

// shareLine builds one employee's line over the given transaction set.
func shareLine(emp models.Employee, txs []models.Transaction) EmployeeShare {
	income := employeeIncome(txs, emp.ID, false)
	var count int
	for _, t := range txs {
		if t.EmployeeID == emp.ID {
			count++
		}
	}
	return EmployeeShare{
		EmployeeID:   emp.ID,
		Name:         emp.Name,
		Position:     emp.Position,
		Percentage:   emp.Percentage,
		Income:       income,
		Share:        income * emp.Percentage / 100,
		Transactions: count,
	}
}

// DashboardStats are the headline figures. Totals deliberately run over
// transactions of every status; the spreadsheet export is the place that
// narrows to approved only.
type DashboardStats struct {
	TotalIncome  float64         `json:"total_income"`
	TotalExpense float64         `json:"total_expense"`
	NetProfit    float64         `json:"net_profit"`
	PendingCount int             `json:"pending_count"`
	Shares       []EmployeeShare `json:"shares"`
}

// Stats computes dashboard figures over the identity's visible set. The
// owner gets a share line per employee; an employee gets their own line.
func (s *Service) Stats(id auth.Identity) (*DashboardStats, error) {
	visible, err := s.Visible(id)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{}
	for _, t := range visible {
		switch t.Kind {
		case models.KindIncome:
			stats.TotalIncome += t.Amount
		case models.KindExpense:
			stats.TotalExpense += t.Amount
		}
		if t.Status == models.StatusPending {
			stats.PendingCount++
		}
	}
	stats.NetProfit = stats.TotalIncome - stats.TotalExpense

	var employees []models.Employee
	if id.IsOwner() {
		employees, err = s.db.ListEmployees()
		if err != nil {
			return nil, err
		}
	} else if id.Authenticated() {
		employees = []models.Employee{*id.Employee}
	}

	all, err := s.db.ListTransactions()
	if err != nil {
		return nil, err
	}
	for _, emp := range employees {
		stats.Shares = append(stats.Shares, shareLine(emp, all))
	}

	return stats, nil
}

// CommissionShare computes one employee's share on demand: the sum of
// their income transactions times their current percentage. Nothing is
// stored, so a percentage change retroactively moves historical figures.
func (s *Service) CommissionShare(employeeID int64) (float64, error) {
	emp, err := s.db.GetEmployee(employeeID)
	if err != nil {
		return 0, err
	}
	all, err := s.db.ListTransactions()
	if err != nil {
		return 0, err
	}
	return employeeIncome(all, employeeID, false) * emp.Percentage / 100, nil
}

// MonthlyReport is the per-month roll-up behind the reporting screen.
type MonthlyReport struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	TotalIncome  float64         `json:"total_income"`
	TotalExpense float64         `json:"total_expense"`
	NetProfit    float64         `json:"net_profit"`
	Employees    []EmployeeShare `json:"employees"`
}

// Monthly builds the report for one calendar month. Owner only.
func (s *Service) Monthly(id auth.Identity, year, month int) (*MonthlyReport, error) {
	if !auth.CanViewReports(id) {
		return nil, ErrDenied
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12", ErrInvalid)
	}

	all, err := s.db.ListTransactions()
	if err != nil {
		return nil, err
	}
	var monthly []models.Transaction
	for _, t := range all {
		if t.Date.Year() == year && int(t.Date.Month()) == month {
			monthly = append(monthly, t)
		}
	}

	report := &MonthlyReport{Year: year, Month: month}
	for _, t := range monthly {
		switch t.Kind {
		case models.KindIncome:
			report.TotalIncome += t.Amount
		case models.KindExpense:
			report.TotalExpense += t.Amount
		}
	}
	report.NetProfit = report.TotalIncome - report.TotalExpense

	employees, err := s.db.ListEmployees()
	if err != nil {
		return nil, err
	}
	for _, emp := range employees {
		report.Employees = append(report.Employees, shareLine(emp, monthly))
	}

	return report, nil
}

func employeeIncome(txs []models.Transaction, employeeID int64, approvedOnly bool) float64 {
	var sum float64
	for _, t := range txs {
		if t.Kind != models.KindIncome || t.EmployeeID != employeeID {
			continue
		}
		if approvedOnly && t.Status != models.StatusApproved {
			continue
		}
		sum += t.Amount
	}
	return sum
}
