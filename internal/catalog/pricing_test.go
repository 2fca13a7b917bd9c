package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Stavickiy/internet-store/internal/catalog"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name          string
		product       catalog.Product
		params        catalog.PricingParams
		wantFinal     int64
		wantSale      int64
		wantEffective int64
	}{
		{
			name:          "base_markup_only",
			product:       catalog.Product{BasePrice: 100, MarkupPercent: 30},
			params:        catalog.PricingParams{MarkupPercent: 0, ExchangeRate: 1, CostPerKg: 50},
			wantFinal:     130,
			wantSale:      0,
			wantEffective: 130,
		},
		{
			name:          "discount_applied",
			product:       catalog.Product{BasePrice: 100, MarkupPercent: 30, Discount: 10},
			params:        catalog.PricingParams{MarkupPercent: 0, ExchangeRate: 1},
			wantFinal:     130,
			wantSale:      117,
			wantEffective: 117,
		},
		{
			name:          "site_floor_overrides_lower_product_markup",
			product:       catalog.Product{BasePrice: 100, MarkupPercent: 10},
			params:        catalog.PricingParams{MarkupPercent: 30, ExchangeRate: 1},
			wantFinal:     130,
			wantEffective: 130,
		},
		{
			name:          "product_markup_overrides_lower_floor",
			product:       catalog.Product{BasePrice: 100, MarkupPercent: 50},
			params:        catalog.PricingParams{MarkupPercent: 30, ExchangeRate: 1},
			wantFinal:     150,
			wantEffective: 150,
		},
		{
			name:          "exchange_rate_and_weight",
			product:       catalog.Product{BasePrice: 100, MarkupPercent: 30, Weight: 0.5},
			params:        catalog.PricingParams{ExchangeRate: 2, CostPerKg: 100},
			wantFinal:     310,
			wantEffective: 310,
		},
		{
			name:    "rounds_half_away_from_zero",
			product: catalog.Product{BasePrice: 1, MarkupPercent: 0, Weight: 0.5},
			// 1*1*1 + 0.5*1 = 1.5 -> 2
			params:        catalog.PricingParams{ExchangeRate: 1, CostPerKg: 1},
			wantFinal:     2,
			wantEffective: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priced := catalog.Price(tt.product, tt.params)
			assert.Equal(t, tt.wantFinal, priced.FinalPrice)
			assert.Equal(t, tt.wantSale, priced.SalePrice)
			assert.Equal(t, tt.wantEffective, priced.EffectivePrice())
		})
	}
}

func TestPriceAll(t *testing.T) {
	products := []catalog.Product{
		{BasePrice: 100, MarkupPercent: 30},
		{BasePrice: 200, MarkupPercent: 30, Discount: 50},
	}
	params := catalog.PricingParams{ExchangeRate: 1}

	priced := catalog.PriceAll(products, params)

	assert.Len(t, priced, 2)
	assert.Equal(t, int64(130), priced[0].FinalPrice)
	assert.Equal(t, int64(260), priced[1].FinalPrice)
	assert.Equal(t, int64(130), priced[1].SalePrice)
}
