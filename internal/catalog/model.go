package catalog

import "time"

// Product is the sellable unit. BasePrice is stored in source currency
// units; the displayed price is always derived by the pricing engine and
// never persisted.
type Product struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	ProductCode   string    `json:"product_code" db:"product_code"`
	BasePrice     int64     `json:"-" db:"base_price"`
	StockCount    int       `json:"stock_count" db:"stock_count"`
	PreorderCount int       `json:"preorder_count" db:"preorder_count"`
	TotalSold     int       `json:"total_sold" db:"total_sold"`
	MarkupPercent int       `json:"-" db:"markup_percent"`
	Discount      int       `json:"discount" db:"discount"`
	Weight        float64   `json:"weight" db:"weight"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// PricingParams is the site-wide singleton pricing row. It is read fresh
// on every computation so admin edits take effect immediately.
type PricingParams struct {
	MarkupPercent int     `db:"markup_percent"`
	ExchangeRate  float64 `db:"exchange_rate"`
	CostPerKg     float64 `db:"cost_per_kg"`
}

// PricedProduct is a Product with its computed prices attached.
type PricedProduct struct {
	Product
	FinalPrice int64 `json:"final_price"`
	// SalePrice is zero unless the product has a discount.
	SalePrice int64 `json:"sale_price,omitempty"`
}

// EffectivePrice is the price a unit actually sells for.
func (p PricedProduct) EffectivePrice() int64 {
	if p.Discount > 0 {
		return p.SalePrice
	}
	return p.FinalPrice
}
