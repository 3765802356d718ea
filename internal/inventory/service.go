// Package inventory manages the retail product catalog and stock levels.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"
)

var (
	ErrDenied   = errors.New("inventory: permission denied")
	ErrInvalid  = errors.New("inventory: invalid input")
	ErrNotFound = storage.ErrNotFound
)

// Service owns product operations. All of them are owner-only; the product
// catalog is back-office territory.
type Service struct {
	db *storage.DB
}

// NewService creates an inventory service.
func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int     `json:"stock"`
	MinStock int     `json:"min_stock"`
}

func (in *ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalid)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalid)
	}
	if in.Cost < 0 {
		return fmt.Errorf("%w: cost cannot be negative", ErrInvalid)
	}
	if in.Stock < 0 || in.MinStock < 0 {
		return fmt.Errorf("%w: stock levels cannot be negative", ErrInvalid)
	}
	return nil
}

// Create adds a product to the catalog.
func (s *Service) Create(id auth.Identity, in ProductInput) (*models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.db.CreateProduct(&models.Product{
		Name:     strings.TrimSpace(in.Name),
		Brand:    strings.TrimSpace(in.Brand),
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price,
		Cost:     in.Cost,
		Stock:    in.Stock,
		MinStock: in.MinStock,
	})
}

// Update rewrites a product.
func (s *Service) Update(id auth.Identity, productID int64, in ProductInput) (*models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	p, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Brand = strings.TrimSpace(in.Brand)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Cost = in.Cost
	p.Stock = in.Stock
	p.MinStock = in.MinStock
	if err := s.db.UpdateProduct(p); err != nil {
		return nil, err
	}
	return s.db.GetProduct(productID)
}

// Delete removes a product.
func (s *Service) Delete(id auth.Identity, productID int64) error {
	if !id.IsOwner() {
		return ErrDenied
	}
	return s.db.DeleteProduct(productID)
}

// Get returns one product.
func (s *Service) Get(id auth.Identity, productID int64) (*models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	return s.db.GetProduct(productID)
}

// List returns products, optionally narrowed by category and a free-text
// search over name, brand, and category.
func (s *Service) List(id auth.Identity, category, search string) ([]models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	products, err := s.db.ListProducts()
	if err != nil {
		return nil, err
	}

	if category == "" && search == "" {
		return products, nil
	}
	term := strings.ToLower(search)
	var out []models.Product
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Brand), term) &&
			!strings.Contains(strings.ToLower(p.Category), term) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// LowStock returns products at or below their minimum stock level.
func (s *Service) LowStock(id auth.Identity) ([]models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	products, err := s.db.ListProducts()
	if err != nil {
		return nil, err
	}
	var low []models.Product
	for _, p := range products {
		if p.Stock <= p.MinStock {
			low = append(low, p)
		}
	}
	return low, nil
}

// Receive adds delivered units to a product's stock.
func (s *Service) Receive(id auth.Identity, productID int64, quantity int) (*models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}
	p, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if err := s.db.SetProductStock(productID, p.Stock+quantity); err != nil {
		return nil, err
	}
	return s.db.GetProduct(productID)
}

// SetStock sets a product's absolute stock level, for corrections after a
// physical count.
func (s *Service) SetStock(id auth.Identity, productID int64, stock int) (*models.Product, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalid)
	}
	if err := s.db.SetProductStock(productID, stock); err != nil {
		return nil, err
	}
	return s.db.GetProduct(productID)
}

// Stats summarizes the catalog.
type Stats struct {
	TotalProducts int              `json:"total_products"`
	TotalValue    float64          `json:"total_value"`
	LowStockCount int              `json:"low_stock_count"`
	Categories    map[string]int   `json:"categories"`
	TopProducts   []models.Product `json:"top_products"`
}

// GetStats computes catalog statistics: stock valuation at cost, low-stock
// count, category breakdown, and the five products holding the most value.
func (s *Service) GetStats(id auth.Identity) (*Stats, error) {
	if !id.IsOwner() {
		return nil, ErrDenied
	}
	products, err := s.db.ListProducts()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalProducts: len(products),
		Categories:    make(map[string]int),
	}
	for _, p := range products {
		stats.TotalValue += float64(p.Stock) * p.Cost
		if p.Stock <= p.MinStock {
			stats.LowStockCount++
		}
		stats.Categories[p.Category]++
	}

	sort.Slice(products, func(i, j int) bool {
		return float64(products[i].Stock)*products[i].Cost > float64(products[j].Stock)*products[j].Cost
	})
	if len(products) > 5 {
		products = products[:5]
	}
	stats.TopProducts = products

	return stats, nil
}
