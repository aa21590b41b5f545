package order

import (
	"time"

	"github.com/sajidkabir/storefront/core/cart"
	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending Status = "pending"
	Paid    Status = "paid"
	Failed  Status = "failed"
)

const (
	ProviderSSLCommerz = "sslcommerz"
	ProviderStripe     = "stripe"
)

type Order struct {
	ID        string          `json:"id" db:"order_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Provider  string          `json:"provider" db:"provider"`
	TranID    string          `json:"tranId" db:"tran_id"`
	Status    Status          `json:"status" db:"status"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax       decimal.Decimal `json:"tax" db:"tax"`
	Shipping  decimal.Decimal `json:"shipping" db:"shipping"`
	Total     decimal.Decimal `json:"total" db:"total"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

type Line struct {
	OrderID   string          `json:"orderId" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Variant   cart.Variant    `json:"variant" db:"variant"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
