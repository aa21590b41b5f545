package cart

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/core/catalog"
	"github.com/shopspring/decimal"
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// PricedLine pairs a line with the unit price that would be charged for
// it right now.
type PricedLine struct {
	Line      Line            `json:"line"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// EffectiveUnitPrice is the sale price when present and lower than the
// list price, otherwise the list price, plus the adjustment of every
// variant choice on the line that matches a recognized attribute.
func EffectiveUnitPrice(p catalog.Product, attrs []catalog.Attribute, v Variant) decimal.Decimal {
	price := p.CurrentPrice()
	for _, a := range attrs {
		if v[a.Name] == a.Value {
			price = price.Add(a.Adjustment)
		}
	}
	return price
}

// PriceLines resolves the current unit price of every line against the
// catalog. Run it on a transaction when the prices must be a consistent
// snapshot, e.g. at checkout.
func PriceLines(ctx context.Context, db sqlx.ExtContext, lines []Line) ([]PricedLine, error) {
	priced := make([]PricedLine, 0, len(lines))

	for _, ln := range lines {
		p, err := catalog.Fetch(ctx, db, ln.ProductID)
		if err != nil {
			return nil, fmt.Errorf("pricing line for product[%s]: %w", ln.ProductID, err)
		}

		attrs, err := catalog.Attributes(ctx, db, ln.ProductID)
		if err != nil {
			return nil, fmt.Errorf("pricing line for product[%s]: %w", ln.ProductID, err)
		}

		unit := EffectiveUnitPrice(p, attrs, ln.Variant)
		priced = append(priced, PricedLine{
			Line:      ln,
			Name:      p.Name,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(ln.Quantity))),
		})
	}

	return priced, nil
}

// ComputeTotals sums the priced lines and applies the configured tax rate
// and flat shipping fee. Shipping is waived on an empty (zero subtotal)
// cart. Intermediate values stay exact; only the final total is rounded,
// half-up, to two decimal places.
func ComputeTotals(lines []PricedLine, taxRate decimal.Decimal, shippingFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, pl := range lines {
		subtotal = subtotal.Add(pl.LineTotal)
	}

	tax := subtotal.Mul(taxRate)

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = shippingFee
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(2),
	}
}
