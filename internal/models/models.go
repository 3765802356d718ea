package models

import "time"

// TransactionKind distinguishes money coming in from money going out.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// TransactionStatus is the approval lifecycle state of a transaction.
// Pending is the only non-terminal state.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Employee represents a salon employee who can log in and file transactions.
type Employee struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Position   string    `json:"position"`
	Percentage float64   `json:"percentage"`
	LoginKey   string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Transaction represents a single income or expense event.
// ApprovedBy and ApprovedAt are set only once the status leaves pending.
type Transaction struct {
	ID          int64             `json:"id"`
	Kind        TransactionKind   `json:"kind"`
	Amount      float64           `json:"amount"`
	Description string            `json:"description"`
	EmployeeID  int64             `json:"employee_id"`
	Date        time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ApprovedBy  string            `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time        `json:"approved_at,omitempty"`
}

// Session is a persisted login session. A session is valid strictly
// before ExpiresAt; Warned tracks the one-time low-time alert.
type Session struct {
	Token      string    `json:"token"`
	Role       string    `json:"role"`
	EmployeeID int64     `json:"employee_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Warned     bool      `json:"warned"`
}

// Product is a retail item tracked in inventory.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"min_stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaleItem is one product line on a sale.
type SaleItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

// Sale is a point-of-sale purchase of one or more products.
type Sale struct {
	ID            int64      `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Items         []SaleItem `json:"items"`
	TotalAmount   float64    `json:"total_amount"`
	PaymentMethod string     `json:"payment_method"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
