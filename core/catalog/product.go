package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup misses or the product is inactive.
var ErrNotFound = errors.New("product not found")

type Product struct {
	ID          string           `json:"id" db:"product_id"`
	CategoryID  *string          `json:"categoryId" db:"category_id"`
	Name        string           `json:"name" db:"name"`
	Slug        string           `json:"slug" db:"slug"`
	SKU         string           `json:"sku" db:"sku"`
	Description string           `json:"description" db:"description"`
	Price       decimal.Decimal  `json:"price" db:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice" db:"sale_price"`
	Stock       int              `json:"stock" db:"stock"`
	Active      bool             `json:"-" db:"is_active"`
	Rating      decimal.Decimal  `json:"rating" db:"rating"`
	Reviews     int              `json:"reviews" db:"reviews"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// CurrentPrice is the price before any variant adjustment: the sale price
// when present and lower than the list price.
func (p Product) CurrentPrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}

// Attribute is one recognized variant choice for a product, with the
// price adjustment it carries.
type Attribute struct {
	Name       string          `json:"name" db:"name"`
	Value      string          `json:"value" db:"value"`
	Adjustment decimal.Decimal `json:"priceAdjustment" db:"price_adjustment"`
}

// Names reduces attributes to the distinct recognized attribute names.
func Names(attrs []Attribute) []string {
	seen := make(map[string]bool, len(attrs))
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	return names
}

// Category groups products; a category may nest under a parent.
type Category struct {
	ID        string    `json:"id" db:"category_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	ParentID  *string   `json:"parentId" db:"parent_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	defaultPageSize = 12
	maxPageSize     = 60
)

// Filter narrows, orders and pages a product listing.
type Filter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Page     int
	PageSize int
}

// window clamps the filter's paging to a sane LIMIT/OFFSET pair.
func (f Filter) window() (limit int, offset int) {
	size := f.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	return size, (page - 1) * size
}
