// Command seed fills a database with demo data for local development.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	dbPath := fs.String("db", "salon.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if n, err := db.CountEmployees(); err != nil {
		return err
	} else if n > 0 {
		return fmt.Errorf("database already has %d employees, refusing to seed", n)
	}

	type seedEmployee struct {
		name, position, key string
		percentage          float64
	}
	employees := []seedEmployee{
		{"Aigerim", "Senior Stylist", "aigerim2024", 40},
		{"Dana", "Stylist", "dana2024", 30},
		{"Madina", "Nail Technician", "madina2024", 20},
		{"Saltanat", "Assistant", "saltanat2024", 10},
	}

	var ids []int64
	for _, se := range employees {
		e, err := db.CreateEmployee(se.name, se.position, se.percentage, se.key)
		if err != nil {
			return fmt.Errorf("create employee %s: %w", se.name, err)
		}
		ids = append(ids, e.ID)
		fmt.Fprintf(stdout, "employee %-10s id=%d key=%s\n", se.name, e.ID, se.key)
	}

	now := time.Now()
	txs := []models.Transaction{
		{Kind: models.KindIncome, Amount: 15000, Description: "Haircut and styling", EmployeeID: ids[0], Date: now.AddDate(0, 0, -3), Status: models.StatusApproved, ApprovedBy: "Owner"},
		{Kind: models.KindIncome, Amount: 25000, Description: "Full coloring", EmployeeID: ids[0], Date: now.AddDate(0, 0, -2), Status: models.StatusApproved, ApprovedBy: "Owner"},
		{Kind: models.KindIncome, Amount: 8000, Description: "Manicure", EmployeeID: ids[2], Date: now.AddDate(0, 0, -1), Status: models.StatusPending},
		{Kind: models.KindExpense, Amount: 12000, Description: "Hair dye restock", EmployeeID: ids[1], Date: now.AddDate(0, 0, -1), Status: models.StatusPending},
	}
	for i := range txs {
		txs[i].CreatedAt = txs[i].Date
		if txs[i].Status == models.StatusApproved {
			at := txs[i].Date
			txs[i].ApprovedAt = &at
		}
		if _, err := db.CreateTransaction(&txs[i]); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
	}
	fmt.Fprintf(stdout, "transactions: %d\n", len(txs))

	products := []models.Product{
		{Name: "Argan Oil Shampoo", Brand: "Kerastase", Category: "hair", Price: 9500, Cost: 6000, Stock: 12, MinStock: 3},
		{Name: "Repair Conditioner", Brand: "Kerastase", Category: "hair", Price: 8500, Cost: 5200, Stock: 8, MinStock: 3},
		{Name: "Gel Polish Red", Brand: "OPI", Category: "nails", Price: 4500, Cost: 2400, Stock: 20, MinStock: 5},
		{Name: "Cuticle Oil", Brand: "OPI", Category: "nails", Price: 3000, Cost: 1500, Stock: 2, MinStock: 4},
	}
	var created []*models.Product
	for i := range products {
		p, err := db.CreateProduct(&products[i])
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		created = append(created, p)
	}
	fmt.Fprintf(stdout, "products: %d\n", len(products))

	shampoo := created[0]
	sale := &models.Sale{
		CustomerName:  "Walk-in",
		PaymentMethod: "cash",
		Items: []models.SaleItem{
			{ProductID: shampoo.ID, ProductName: shampoo.Name, Quantity: 1, Price: shampoo.Price, Total: shampoo.Price},
		},
		TotalAmount: shampoo.Price,
	}
	if _, err := db.CreateSale(sale); err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	fmt.Fprintln(stdout, "sales: 1")

	fmt.Fprintln(stdout, "done")
	return nil
}
