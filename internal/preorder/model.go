package preorder

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/order"
)

// Pre-orders share the order status vocabulary plus "ordering": the shop
// has placed the supplier order but goods have not arrived yet.
type Status = order.Status

const StatusOrdering Status = "ordering"

var allowedTransitions = map[Status]map[Status]bool{
	order.StatusNew: {
		StatusOrdering:         true,
		order.StatusProcessing: true,
		order.StatusCanceled:   true,
	},
	StatusOrdering: {
		order.StatusProcessing: true,
		order.StatusShipped:    true,
		order.StatusCanceled:   true,
	},
	order.StatusProcessing: {
		order.StatusShipped:  true,
		order.StatusReady:    true,
		order.StatusCanceled: true,
	},
	order.StatusShipped: {
		order.StatusReady:    true,
		order.StatusExecuted: true,
		order.StatusCanceled: true,
	},
	order.StatusReady: {
		order.StatusExecuted: true,
		order.StatusCanceled: true,
	},
	order.StatusExecuted: {},
	order.StatusCanceled: {},
}

func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

// StatusLabel covers the pre-order-only "ordering" status on top of the
// shared labels.
func StatusLabel(s Status) string {
	if s == StatusOrdering {
		return "Ordering"
	}
	return s.Label()
}

// Item mirrors an order item snapshot.
type Item = order.Item

// Line is one row of the pre-order basket. Unlike the regular cart it has
// no stock constraints: pre-orders exist for out-of-stock products.
type Line struct {
	ID       int64     `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Product  catalog.Product
	Quantity int       `json:"quantity" db:"quantity"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}

type PreOrder struct {
	ID              uuid.UUID               `json:"id" db:"id"`
	UserID          uuid.UUID               `json:"user_id" db:"user_id"`
	Status          Status                  `json:"status" db:"status"`
	PaymentStatus   order.PaymentStatus     `json:"payment_status" db:"payment_status"`
	TypeDelivery    checkout.DeliveryOption `json:"type_delivery" db:"type_delivery"`
	TypePayment     checkout.PaymentType    `json:"type_payment" db:"type_payment"`
	TotalPrice      int64                   `json:"total_price" db:"total_price"`
	WithoutDiscount int64                   `json:"without_discount" db:"without_discount"`
	DiscountSum     int64                   `json:"discount_sum" db:"discount_sum"`
	ShippingAddress string                  `json:"shipping_address" db:"shipping_address"`
	Email           string                  `json:"email" db:"email"`
	PhoneNumber     string                  `json:"phone_number" db:"phone_number"`
	Comment         string                  `json:"comment" db:"comment"`
	Items           []Item                  `json:"items" db:"-"`
	CreatedAt       time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at" db:"updated_at"`
}
