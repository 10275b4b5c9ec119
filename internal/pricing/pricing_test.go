package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTotalsAddsShipping(t *testing.T) {
	totals := OrderTotals([]Line{{Price: 100, Quantity: 2}}, 50)

	assert.Equal(t, 200.0, totals.ItemsPrice)
	assert.Equal(t, 50.0, totals.ShippingPrice)
	assert.Equal(t, 250.0, totals.TotalPrice)
}

func TestOrderTotalsAvoidsFloatDrift(t *testing.T) {
	lines := []Line{{Price: 0.1, Quantity: 1}, {Price: 0.2, Quantity: 1}, {Price: 19.99, Quantity: 3}}
	totals := OrderTotals(lines, 0)

	assert.Equal(t, 60.27, totals.ItemsPrice)
	assert.Equal(t, totals.ItemsPrice+totals.ShippingPrice, totals.TotalPrice)
}

func TestDiscountedPrice(t *testing.T) {
	assert.Equal(t, 75.0, DiscountedPrice(100, 25))
	assert.Equal(t, 100.0, DiscountedPrice(100, 0))
	assert.Equal(t, 2.66, DiscountedPrice(3.33, 20))
}

func TestAverageAndRound(t *testing.T) {
	assert.Equal(t, 33.33, Average(100, 3))
	assert.Equal(t, 0.0, Average(100, 0))
	assert.Equal(t, 1.01, Round(1.005))
	assert.Equal(t, 0.3, Sum(0.1, 0.2))
}

func TestValidatePricingRejectsOutOfRange(t *testing.T) {
	assert.Error(t, ValidatePricing(-1, 0, 0))
	assert.Error(t, ValidatePricing(10, -5, 0))
	assert.Error(t, ValidatePricing(10, 0, 101))
	assert.NoError(t, ValidatePricing(0, 0, 100))
}

func TestResolvePriceUpdateMergesAndValidates(t *testing.T) {
	price := 80.0
	got, err := ResolvePriceUpdate(PriceFields{Price: 100, Discount: 10}, PriceUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, PriceFields{Price: 80, Discount: 10}, got)

	bad := 150.0
	_, err = ResolvePriceUpdate(PriceFields{Price: 100}, PriceUpdate{Discount: &bad})
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(25000), MinorUnits(250))
	assert.Equal(t, int64(6027), MinorUnits(60.27))
	assert.Equal(t, int64(1), MinorUnits(0.005))
	assert.Equal(t, 60.27, FromMinorUnits(6027))
}
