package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salon-ledger/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// SchemaVersion is bumped whenever the migration list changes shape.
const SchemaVersion = 1

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			position TEXT NOT NULL,
			percentage REAL NOT NULL,
			login_key TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			amount REAL NOT NULL,
			description TEXT NOT NULL,
			employee_id INTEGER NOT NULL,
			date DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			approved_by TEXT NOT NULL DEFAULT '',
			approved_at DATETIME,
			FOREIGN KEY (employee_id) REFERENCES employees(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			employee_id INTEGER NOT NULL DEFAULT 0,
			issued_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			warned INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			price REAL NOT NULL,
			cost REAL NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			min_stock INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			items TEXT NOT NULL,
			total_amount REAL NOT NULL,
			payment_method TEXT NOT NULL DEFAULT 'cash',
			notes TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS schema_info (
			version INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM schema_info`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := db.conn.Exec(`INSERT INTO schema_info (version) VALUES (?)`, SchemaVersion); err != nil {
			return err
		}
	}

	return nil
}

// Version returns the stored schema version.
func (db *DB) Version() (int, error) {
	var v int
	err := db.conn.QueryRow(`SELECT version FROM schema_info`).Scan(&v)
	return v, err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ===== Employees =====

// CreateEmployee inserts a new employee and returns the stored record.
func (db *DB) CreateEmployee(name, position string, percentage float64, loginKey string) (*models.Employee, error) {
	result, err := db.conn.Exec(
		"INSERT INTO employees (name, position, percentage, login_key) VALUES (?, ?, ?, ?)",
		name, position, percentage, loginKey,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetEmployee(id)
}

// GetEmployee retrieves an employee by ID.
func (db *DB) GetEmployee(id int64) (*models.Employee, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, position, percentage, login_key, created_at FROM employees WHERE id = ?",
		id,
	)
	return scanEmployee(row)
}

// GetEmployeeByLoginKey retrieves the employee with the given login key.
// The match is exact and case-sensitive.
func (db *DB) GetEmployeeByLoginKey(key string) (*models.Employee, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, position, percentage, login_key, created_at FROM employees WHERE login_key = ?",
		key,
	)
	return scanEmployee(row)
}

func scanEmployee(row *sql.Row) (*models.Employee, error) {
	var e models.Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Position, &e.Percentage, &e.LoginKey, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListEmployees retrieves all employees in insertion order.
func (db *DB) ListEmployees() ([]models.Employee, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, position, percentage, login_key, created_at FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &e.Percentage, &e.LoginKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

// UpdateEmployee updates an existing employee record.
func (db *DB) UpdateEmployee(e *models.Employee) error {
	res, err := db.conn.Exec(
		"UPDATE employees SET name = ?, position = ?, percentage = ?, login_key = ? WHERE id = ?",
		e.Name, e.Position, e.Percentage, e.LoginKey, e.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteEmployee removes an employee. Their transactions go with them via
// the foreign key cascade.
func (db *DB) DeleteEmployee(id int64) error {
	res, err := db.conn.Exec("DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CountEmployees returns the number of employee records.
func (db *DB) CountEmployees() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM employees").Scan(&count)
	return count, err
}

// ===== Transactions =====

const transactionCols = "id, kind, amount, description, employee_id, date, status, created_at, approved_by, approved_at"

// CreateTransaction inserts a transaction and returns the stored record.
func (db *DB) CreateTransaction(t *models.Transaction) (*models.Transaction, error) {
	result, err := db.conn.Exec(
		`INSERT INTO transactions (kind, amount, description, employee_id, date, status, created_at, approved_by, approved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Kind, t.Amount, t.Description, t.EmployeeID, t.Date, t.Status, t.CreatedAt, t.ApprovedBy, t.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTransaction(id)
}

// GetTransaction retrieves a single transaction by ID.
func (db *DB) GetTransaction(id int64) (*models.Transaction, error) {
	row := db.conn.QueryRow(
		"SELECT "+transactionCols+" FROM transactions WHERE id = ?",
		id,
	)

	var t models.Transaction
	if err := row.Scan(&t.ID, &t.Kind, &t.Amount, &t.Description, &t.EmployeeID, &t.Date,
		&t.Status, &t.CreatedAt, &t.ApprovedBy, &t.ApprovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListTransactions retrieves all transactions in insertion order.
func (db *DB) ListTransactions() ([]models.Transaction, error) {
	return db.queryTransactions("SELECT " + transactionCols + " FROM transactions ORDER BY id")
}

// ListTransactionsByEmployee retrieves one employee's transactions,
// preserving relative order.
func (db *DB) ListTransactionsByEmployee(employeeID int64) ([]models.Transaction, error) {
	return db.queryTransactions(
		"SELECT "+transactionCols+" FROM transactions WHERE employee_id = ? ORDER BY id",
		employeeID,
	)
}

func (db *DB) queryTransactions(query string, args ...any) ([]models.Transaction, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Kind, &t.Amount, &t.Description, &t.EmployeeID, &t.Date,
			&t.Status, &t.CreatedAt, &t.ApprovedBy, &t.ApprovedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}

	return txs, rows.Err()
}

// UpdateTransaction rewrites the editable fields of a transaction.
// Approval fields are owned by SetTransactionStatus.
func (db *DB) UpdateTransaction(t *models.Transaction) error {
	res, err := db.conn.Exec(
		"UPDATE transactions SET kind = ?, amount = ?, description = ?, employee_id = ?, date = ? WHERE id = ?",
		t.Kind, t.Amount, t.Description, t.EmployeeID, t.Date, t.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetTransactionStatus records an approval decision.
func (db *DB) SetTransactionStatus(id int64, status models.TransactionStatus, approvedBy string, approvedAt time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE transactions SET status = ?, approved_by = ?, approved_at = ? WHERE id = ?",
		status, approvedBy, approvedAt, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteTransaction removes a transaction by ID.
func (db *DB) DeleteTransaction(id int64) error {
	res, err := db.conn.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReplaceEmployees swaps the whole table contents; used by backup import.
func (db *DB) ReplaceEmployees(employees []models.Employee) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM employees"); err != nil {
			return err
		}
		for i := range employees {
			e := &employees[i]
			if _, err := tx.Exec(
				"INSERT INTO employees (id, name, position, percentage, login_key, created_at) VALUES (?, ?, ?, ?, ?, ?)",
				e.ID, e.Name, e.Position, e.Percentage, e.LoginKey, e.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTransactions swaps the whole table contents; used by backup import.
func (db *DB) ReplaceTransactions(txs []models.Transaction) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM transactions"); err != nil {
			return err
		}
		for i := range txs {
			t := &txs[i]
			if _, err := tx.Exec(
				`INSERT INTO transactions (id, kind, amount, description, employee_id, date, status, created_at, approved_by, approved_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.Kind, t.Amount, t.Description, t.EmployeeID, t.Date, t.Status, t.CreatedAt, t.ApprovedBy, t.ApprovedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceProducts swaps the whole table contents; used by backup import.
func (db *DB) ReplaceProducts(products []models.Product) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM products"); err != nil {
			return err
		}
		for i := range products {
			p := &products[i]
			if _, err := tx.Exec(
				`INSERT INTO products (id, name, brand, category, price, cost, stock, min_stock, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Name, p.Brand, p.Category, p.Price, p.Cost, p.Stock, p.MinStock, p.CreatedAt, p.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceSales swaps the whole table contents; used by backup import.
func (db *DB) ReplaceSales(sales []models.Sale) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM sales"); err != nil {
			return err
		}
		for i := range sales {
			s := &sales[i]
			items, err := json.Marshal(s.Items)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`INSERT INTO sales (id, customer_name, customer_phone, items, total_amount, payment_method, notes, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				s.ID, s.CustomerName, s.CustomerPhone, string(items), s.TotalAmount, s.PaymentMethod, s.Notes, s.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountTransactions returns the number of transaction rows.
func (db *DB) CountTransactions() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// ===== Sessions =====

// CreateSession persists a new session, replacing any prior row with the
// same token.
func (db *DB) CreateSession(s *models.Session) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sessions (token, role, employee_id, issued_at, expires_at, warned) VALUES (?, ?, ?, ?, ?, ?)",
		s.Token, s.Role, s.EmployeeID, s.IssuedAt, s.ExpiresAt, s.Warned,
	)
	return err
}

// GetSession retrieves a session row by token without judging validity.
func (db *DB) GetSession(token string) (*models.Session, error) {
	row := db.conn.QueryRow(
		"SELECT token, role, employee_id, issued_at, expires_at, warned FROM sessions WHERE token = ?",
		token,
	)

	var s models.Session
	if err := row.Scan(&s.Token, &s.Role, &s.EmployeeID, &s.IssuedAt, &s.ExpiresAt, &s.Warned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// RenewSession resets issue and expiry times and clears the warned flag.
func (db *DB) RenewSession(token string, issuedAt, expiresAt time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE sessions SET issued_at = ?, expires_at = ?, warned = 0 WHERE token = ?",
		issuedAt, expiresAt, token,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkSessionWarned records that the low-time warning has been raised.
func (db *DB) MarkSessionWarned(token string) error {
	_, err := db.conn.Exec("UPDATE sessions SET warned = 1 WHERE token = ?", token)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all sessions at or past expiry.
func (db *DB) CleanExpiredSessions(now time.Time) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", now)
	return err
}

// ===== Products =====

const productCols = "id, name, brand, category, price, cost, stock, min_stock, created_at, updated_at"

// CreateProduct inserts a product and returns the stored record.
func (db *DB) CreateProduct(p *models.Product) (*models.Product, error) {
	result, err := db.conn.Exec(
		`INSERT INTO products (name, brand, category, price, cost, stock, min_stock)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Brand, p.Category, p.Price, p.Cost, p.Stock, p.MinStock,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetProduct(id)
}

// GetProduct retrieves a product by ID.
func (db *DB) GetProduct(id int64) (*models.Product, error) {
	row := db.conn.QueryRow("SELECT "+productCols+" FROM products WHERE id = ?", id)

	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.Cost,
		&p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProducts retrieves all products in insertion order.
func (db *DB) ListProducts() ([]models.Product, error) {
	rows, err := db.conn.Query("SELECT " + productCols + " FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.Cost,
			&p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// UpdateProduct rewrites a product record.
func (db *DB) UpdateProduct(p *models.Product) error {
	res, err := db.conn.Exec(
		`UPDATE products SET name = ?, brand = ?, category = ?, price = ?, cost = ?,
		 stock = ?, min_stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Name, p.Brand, p.Category, p.Price, p.Cost, p.Stock, p.MinStock, p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetProductStock sets the absolute stock level of a product.
func (db *DB) SetProductStock(id int64, stock int) error {
	res, err := db.conn.Exec(
		"UPDATE products SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		stock, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteProduct removes a product by ID.
func (db *DB) DeleteProduct(id int64) error {
	res, err := db.conn.Exec("DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ===== Sales =====

const saleCols = "id, customer_name, customer_phone, items, total_amount, payment_method, notes, created_at"

// CreateSale inserts a sale and decrements stock for each line inside one
// database transaction. It fails without side effects if any line would
// drive a product's stock negative.
func (db *DB) CreateSale(s *models.Sale) (*models.Sale, error) {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return nil, err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	var id int64
	err = db.inTx(func(tx *sql.Tx) error {
		for _, item := range s.Items {
			res, err := tx.Exec(
				`UPDATE products SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ? AND stock >= ?`,
				item.Quantity, item.ProductID, item.Quantity,
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("product %d: insufficient stock for quantity %d", item.ProductID, item.Quantity)
			}
		}

		result, err := tx.Exec(
			`INSERT INTO sales (customer_name, customer_phone, items, total_amount, payment_method, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.CustomerName, s.CustomerPhone, string(items), s.TotalAmount, s.PaymentMethod, s.Notes, s.CreatedAt,
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	return db.GetSale(id)
}

// GetSale retrieves a sale by ID.
func (db *DB) GetSale(id int64) (*models.Sale, error) {
	row := db.conn.QueryRow("SELECT "+saleCols+" FROM sales WHERE id = ?", id)
	return scanSale(row.Scan)
}

// ListSales retrieves all sales, newest first.
func (db *DB) ListSales() ([]models.Sale, error) {
	return db.querySales("SELECT " + saleCols + " FROM sales ORDER BY created_at DESC, id DESC")
}

// ListSalesBetween retrieves sales with created_at in [start, end), newest first.
func (db *DB) ListSalesBetween(start, end time.Time) ([]models.Sale, error) {
	return db.querySales(
		"SELECT "+saleCols+" FROM sales WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC",
		start, end,
	)
}

func (db *DB) querySales(query string, args ...any) ([]models.Sale, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *s)
	}

	return sales, rows.Err()
}

func scanSale(scan func(...any) error) (*models.Sale, error) {
	var s models.Sale
	var items string
	if err := scan(&s.ID, &s.CustomerName, &s.CustomerPhone, &items, &s.TotalAmount,
		&s.PaymentMethod, &s.Notes, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &s.Items); err != nil {
		return nil, fmt.Errorf("decode sale %d items: %w", s.ID, err)
	}
	return &s, nil
}

// DeleteSale removes a sale by ID. Stock is not restored; returned goods
// go back through a stock receive.
func (db *DB) DeleteSale(id int64) error {
	res, err := db.conn.Exec("DELETE FROM sales WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
