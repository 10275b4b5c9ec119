// Package pricing does the money arithmetic for carts, orders and reports.
// Amounts are stored as float64 but every sum is carried out in decimal and
// rounded to cents.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const cents = 2

var hundred = decimal.NewFromInt(100)

// Line is one priced quantity.
type Line struct {
	Price    float64
	Quantity int
}

type Totals struct {
	ItemsPrice    float64
	ShippingPrice float64
	TotalPrice    float64
}

// Round rounds v half away from zero to cents.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(cents).InexactFloat64()
}

// LineTotal is price × quantity rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	return lineTotal(price, quantity).Round(cents).InexactFloat64()
}

func lineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums the lines.
func Subtotal(lines []Line) float64 {
	return subtotal(lines).Round(cents).InexactFloat64()
}

func subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(lineTotal(l.Price, l.Quantity))
	}
	return sum.Round(cents)
}

// OrderTotals computes itemsPrice, shippingPrice and totalPrice. The total is
// always derived from the other two.
func OrderTotals(lines []Line, shipping float64) Totals {
	items := subtotal(lines)
	ship := decimal.NewFromFloat(shipping).Round(cents)
	return Totals{
		ItemsPrice:    items.InexactFloat64(),
		ShippingPrice: ship.InexactFloat64(),
		TotalPrice:    items.Add(ship).InexactFloat64(),
	}
}

// Sum adds amounts without float drift.
func Sum(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.Round(cents).InexactFloat64()
}

// Average returns total / count rounded to cents, or 0 when count is 0.
func Average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromFloat(total).
		Div(decimal.NewFromInt(int64(count))).
		Round(cents).
		InexactFloat64()
}

// DiscountedPrice is price − price×discount/100.
func DiscountedPrice(price, discount float64) float64 {
	if discount <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	off := p.Mul(decimal.NewFromFloat(discount)).Div(hundred)
	return p.Sub(off).Round(cents).InexactFloat64()
}

func ValidatePricing(price, originalPrice, discount float64) error {
	if price < 0 {
		return fmt.Errorf("price must be zero or greater")
	}
	if originalPrice < 0 {
		return fmt.Errorf("originalPrice must be zero or greater")
	}
	if discount < 0 || discount > 100 {
		return fmt.Errorf("discount must be between 0 and 100")
	}
	return nil
}

// PriceUpdate is a partial change to a product's pricing fields.
type PriceUpdate struct {
	Price         *float64
	OriginalPrice *float64
	Discount      *float64
}

type PriceFields struct {
	Price         float64
	OriginalPrice float64
	Discount      float64
}

// ResolvePriceUpdate merges input over existing and validates the result.
func ResolvePriceUpdate(existing PriceFields, input PriceUpdate) (PriceFields, error) {
	result := existing
	if input.Price != nil {
		result.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		result.OriginalPrice = *input.OriginalPrice
	}
	if input.Discount != nil {
		result.Discount = *input.Discount
	}

	if err := ValidatePricing(result.Price, result.OriginalPrice, result.Discount); err != nil {
		return PriceFields{}, err
	}
	return result, nil
}

// MinorUnits converts amount to the smallest currency unit, rounding to cents first.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(cents).Mul(hundred).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(units int64) float64 {
	return decimal.New(units, -cents).InexactFloat64()
}
