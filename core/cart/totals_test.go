package cart

import (
	"testing"

	"github.com/sajidkabir/storefront/core/catalog"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	tot := ComputeTotals(nil, dec(t, "0.10"), dec(t, "10.00"))

	for name, got := range map[string]decimal.Decimal{
		"subtotal": tot.Subtotal,
		"tax":      tot.Tax,
		"shipping": tot.Shipping,
		"total":    tot.Total,
	} {
		if !got.IsZero() {
			t.Errorf("%s of an empty cart: expected 0, got %s", name, got)
		}
	}
}

func TestComputeTotalsSalePrice(t *testing.T) {
	sale := dec(t, "20.00")
	p := catalog.Product{Price: dec(t, "25.00"), SalePrice: &sale}

	unit := EffectiveUnitPrice(p, nil, Variant{})
	if !unit.Equal(dec(t, "20.00")) {
		t.Fatalf("effective unit price: expected 20.00, got %s", unit)
	}

	priced := []PricedLine{{
		Line:      Line{Quantity: 3},
		UnitPrice: unit,
		LineTotal: unit.Mul(decimal.NewFromInt(3)),
	}}

	tot := ComputeTotals(priced, dec(t, "0.10"), dec(t, "10.00"))

	if !tot.Subtotal.Equal(dec(t, "60.00")) {
		t.Errorf("subtotal: expected 60.00, got %s", tot.Subtotal)
	}
	if !tot.Tax.Equal(dec(t, "6.00")) {
		t.Errorf("tax: expected 6.00, got %s", tot.Tax)
	}
	if !tot.Shipping.Equal(dec(t, "10.00")) {
		t.Errorf("shipping: expected 10.00, got %s", tot.Shipping)
	}
	if !tot.Total.Equal(dec(t, "76.00")) {
		t.Errorf("total: expected 76.00, got %s", tot.Total)
	}
}

func TestEffectiveUnitPriceIgnoresHigherSale(t *testing.T) {
	sale := dec(t, "30.00")
	p := catalog.Product{Price: dec(t, "25.00"), SalePrice: &sale}

	if unit := EffectiveUnitPrice(p, nil, Variant{}); !unit.Equal(dec(t, "25.00")) {
		t.Fatalf("expected the list price 25.00 to win over a higher sale price, got %s", unit)
	}
}

func TestEffectiveUnitPriceVariantAdjustment(t *testing.T) {
	p := catalog.Product{Price: dec(t, "25.00")}
	attrs := []catalog.Attribute{
		{Name: "size", Value: "XL", Adjustment: dec(t, "2.50")},
		{Name: "size", Value: "M", Adjustment: dec(t, "0.00")},
		{Name: "color", Value: "red", Adjustment: dec(t, "1.00")},
	}

	unit := EffectiveUnitPrice(p, attrs, Variant{"size": "XL", "color": "red"})
	if !unit.Equal(dec(t, "28.50")) {
		t.Fatalf("expected 25.00 + 2.50 + 1.00 = 28.50, got %s", unit)
	}

	unit = EffectiveUnitPrice(p, attrs, Variant{"size": "M"})
	if !unit.Equal(dec(t, "25.00")) {
		t.Fatalf("expected no adjustment for size M, got %s", unit)
	}
}

func TestComputeTotalsRoundsHalfUpAtTheEnd(t *testing.T) {
	priced := []PricedLine{{
		Line:      Line{Quantity: 1},
		UnitPrice: dec(t, "0.05"),
		LineTotal: dec(t, "0.05"),
	}}

	// 0.05 + 0.005 tax + 10.00 shipping = 10.055, which must round up.
	tot := ComputeTotals(priced, dec(t, "0.10"), dec(t, "10.00"))

	if !tot.Tax.Equal(dec(t, "0.005")) {
		t.Errorf("tax must stay exact before the final rounding, got %s", tot.Tax)
	}
	if !tot.Total.Equal(dec(t, "10.06")) {
		t.Errorf("total: expected 10.06, got %s", tot.Total)
	}
}
