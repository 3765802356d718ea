// Package sales records point-of-sale purchases and derives revenue
// figures from them. A recorded sale consumes product stock atomically.
package sales

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"
)

var (
	ErrDenied   = errors.New("sales: permission denied")
	ErrInvalid  = errors.New("sales: invalid input")
	ErrNotFound = storage.ErrNotFound
)

// Service owns sale operations. Owner-only, like the rest of the
// back office.
type Service struct {
	db *storage.DB

	now func() time.Time
}

// NewService creates a sales service.
func NewService(db *storage.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// ItemInput is one requested sale line.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SaleInput carries the fields of a new sale.
type SaleInput struct {
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
	Items         []ItemInput `json:"items"`
}

// Record validates and stores a sale. Line prices and name snapshots come
// from the current catalog; stock is consumed in the same database
// transaction, so an out-of-stock line leaves nothing behind.
func (s *Service) Record(id auth.Identity, in SaleInput) (*models.Sale, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalid)
	}

	sale := &models.Sale{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedAt:     s.now(),
	}
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = "cash"
	}

	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
		}
		p, err := s.db.GetProduct(item.ProductID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: no such product %d", ErrInvalid, item.ProductID)
			}
			return nil, err
		}
		if p.Stock < item.Quantity {
			return nil, fmt.Errorf("%w: %s has %d in stock, %d requested", ErrInvalid, p.Name, p.Stock, item.Quantity)
		}
		line := models.SaleItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			Price:       p.Price,
			Total:       p.Price * float64(item.Quantity),
		}
		sale.Items = append(sale.Items, line)
		sale.TotalAmount += line.Total
	}

	return s.db.CreateSale(sale)
}

// Delete removes a sale record. Stock is not restored.
func (s *Service) Delete(id auth.Identity, saleID int64) error {
	if !id.IsOwner() {
		return ErrDenied
	}
	return s.db.DeleteSale(saleID)
}

// List returns all sales, newest first.
func (s *Service) List(id auth.Identity) ([]models.Sale, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	return s.db.ListSales()
}

// Revenue is a roll-up over a set of sales.
type Revenue struct {
	TotalSales   int           `json:"total_sales"`
	TotalRevenue float64       `json:"total_revenue"`
	TotalItems   int           `json:"total_items"`
	Sales        []models.Sale `json:"sales"`
}

// Daily summarizes one calendar day.
func (s *Service) Daily(id auth.Identity, day time.Time) (*Revenue, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.between(start, start.AddDate(0, 0, 1))
}

// Monthly summarizes one calendar month.
func (s *Service) Monthly(id auth.Identity, year, month int) (*Revenue, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12", ErrInvalid)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return s.between(start, start.AddDate(0, 1, 0))
}

// Range summarizes sales with created_at in [start, end).
func (s *Service) Range(id auth.Identity, start, end time.Time) (*Revenue, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalid)
	}
	return s.between(start, end)
}

func (s *Service) between(start, end time.Time) (*Revenue, error) {
	sales, err := s.db.ListSalesBetween(start, end)
	if err != nil {
		return nil, err
	}
	return summarize(sales), nil
}

func summarize(sales []models.Sale) *Revenue {
	r := &Revenue{TotalSales: len(sales), Sales: sales}
	for _, sale := range sales {
		r.TotalRevenue += sale.TotalAmount
		for _, item := range sale.Items {
			r.TotalItems += item.Quantity
		}
	}
	return r
}

// TopProduct is one line in the best-sellers list.
type TopProduct struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int     `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
	SalesCount    int     `json:"sales_count"`
}

// TopSellers ranks products by units sold across all sales.
func (s *Service) TopSellers(id auth.Identity, limit int) ([]TopProduct, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if limit <= 0 {
		limit = 10
	}
	sales, err := s.db.ListSales()
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64]*TopProduct)
	for _, sale := range sales {
		for _, item := range sale.Items {
			tp, ok := byProduct[item.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: item.ProductID, ProductName: item.ProductName}
				byProduct[item.ProductID] = tp
			}
			tp.TotalQuantity += item.Quantity
			tp.TotalRevenue += item.Total
			tp.SalesCount++
		}
	}

	ranked := make([]TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		ranked = append(ranked, *tp)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalQuantity != ranked[j].TotalQuantity {
			return ranked[i].TotalQuantity > ranked[j].TotalQuantity
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// OverallStats is the storefront health summary.
type OverallStats struct {
	TotalSales       int     `json:"total_sales"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalItems       int     `json:"total_items"`
	TodayRevenue     float64 `json:"today_revenue"`
	TodayItems       int     `json:"today_items"`
	ThisMonthRevenue float64 `json:"this_month_revenue"`
	ThisMonthItems   int     `json:"this_month_items"`
	LastMonthRevenue float64 `json:"last_month_revenue"`
	MonthlyGrowth    float64 `json:"monthly_growth"`
}

// Overall computes lifetime, today, and month-over-month figures.
func (s *Service) Overall(id auth.Identity) (*OverallStats, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}

	all, err := s.db.ListSales()
	if err != nil {
		return nil, err
	}
	lifetime := summarize(all)

	now := s.now()
	today, err := s.Daily(id, now)
	if err != nil {
		return nil, err
	}
	thisMonth, err := s.Monthly(id, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	lastMonth, err := s.Monthly(id, prev.Year(), int(prev.Month()))
	if err != nil {
		return nil, err
	}

	stats := &OverallStats{
		TotalSales:       lifetime.TotalSales,
		TotalRevenue:     lifetime.TotalRevenue,
		TotalItems:       lifetime.TotalItems,
		TodayRevenue:     today.TotalRevenue,
		TodayItems:       today.TotalItems,
		ThisMonthRevenue: thisMonth.TotalRevenue,
		ThisMonthItems:   thisMonth.TotalItems,
		LastMonthRevenue: lastMonth.TotalRevenue,
	}
	if lastMonth.TotalRevenue > 0 {
		stats.MonthlyGrowth = (thisMonth.TotalRevenue - lastMonth.TotalRevenue) / lastMonth.TotalRevenue * 100
	}
	return stats, nil
}
