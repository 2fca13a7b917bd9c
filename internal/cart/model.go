package cart

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/catalog"
)

// Line is one (user, product) row of the mutable basket. At most one live
// line exists per pair; a line is deleted rather than allowed to reach a
// zero quantity.
type Line struct {
	ID       int64     `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Product  catalog.Product
	Quantity int       `json:"quantity" db:"quantity"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}

// PricedLine is a reconciled line with its computed prices and line total.
type PricedLine struct {
	ID       int64                 `json:"id"`
	Product  catalog.PricedProduct `json:"product"`
	Quantity int                   `json:"quantity"`
	// Discount is the effective percent after the promo max-merge.
	Discount int   `json:"discount"`
	Sum      int64 `json:"sum"`
}

// Totals is the aggregated cart view returned by Compute.
type Totals struct {
	Lines           []PricedLine `json:"lines"`
	TotalPrice      int64        `json:"total_price"`
	WithoutDiscount int64        `json:"total_price_without_discount"`
	DiscountSum     int64        `json:"discount"`
	// PromoCode is the applied code, empty when none was accepted.
	PromoCode string `json:"promo_code,omitempty"`
	// Warnings lists user-facing quantity corrections made by Reconcile.
	Warnings []string `json:"warnings,omitempty"`
}
