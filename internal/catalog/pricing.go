package catalog

import "math"

// Price derives the sellable price from the product's stored attributes and
// the current pricing parameters:
//
//	final = round(base * rate * (1 + max(floor, markup)/100) + weight * costPerKg)
//
// Rounding is half-away-from-zero (math.Round). When the product carries a
// discount the sale price is round(final * (1 - discount/100)), otherwise
// SalePrice stays zero.
func Price(p Product, params PricingParams) PricedProduct {
	markup := p.MarkupPercent
	if params.MarkupPercent > markup {
		markup = params.MarkupPercent
	}

	final := int64(math.Round(float64(p.BasePrice)*params.ExchangeRate*(1+float64(markup)/100) + p.Weight*params.CostPerKg))

	priced := PricedProduct{Product: p, FinalPrice: final}
	if p.Discount > 0 {
		priced.SalePrice = int64(math.Round(float64(final) * (1 - float64(p.Discount)/100)))
	}
	return priced
}

// PriceAll applies Price to every product with the same parameters.
func PriceAll(products []Product, params PricingParams) []PricedProduct {
	priced := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		priced = append(priced, Price(p, params))
	}
	return priced
}
