package order

import (
	"sort"
	"time"

	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/checkout"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusReady      Status = "ready_for_issue"
	StatusExecuted   Status = "executed"
	StatusCanceled   Status = "canceled"
)

func (s Status) String() string {
	return string(s)
}

// Label is the human form used in notification emails.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusProcessing:
		return "Processing"
	case StatusShipped:
		return "Shipped"
	case StatusReady:
		return "Ready for issue"
	case StatusExecuted:
		return "Executed"
	case StatusCanceled:
		return "Canceled"
	}
	return string(s)
}

func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusCanceled
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusProcessing: true,
		StatusCanceled:   true,
	},
	StatusProcessing: {
		StatusShipped:  true,
		StatusReady:    true,
		StatusCanceled: true,
	},
	StatusShipped: {
		StatusReady:    true,
		StatusExecuted: true,
		StatusCanceled: true,
	},
	StatusReady: {
		StatusExecuted: true,
		StatusCanceled: true,
	},
	StatusExecuted: {},
	StatusCanceled: {},
}

// CanTransition reports whether the status state machine allows from -> to.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) Label() string {
	switch p {
	case PaymentUnpaid:
		return "Unpaid"
	case PaymentPaid:
		return "Paid"
	}
	return string(p)
}

// CanTransitionPayment reports whether the payment axis allows moving from
// one state to another. The axis is one-way: unpaid to paid.
func CanTransitionPayment(from, to PaymentStatus) bool {
	return from == PaymentUnpaid && to == PaymentPaid
}

// Item snapshots a cart line at materialization time. Price, discount and
// sum never recompute from live product state afterwards.
type Item struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Title     string    `json:"title" db:"-"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     int64     `json:"price" db:"price"`
	Sum       int64     `json:"sum" db:"sum"`
	Discount  int       `json:"discount" db:"discount"`
}

// SortItems orders items by ascending product id. The repositories walk
// items in this order when touching stock rows, so concurrent checkouts
// that share products always lock in the same sequence.
func SortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID < items[j].ProductID
	})
}

// Order is immutable once created except for the status and payment-status
// axes.
type Order struct {
	ID              uuid.UUID               `json:"id" db:"id"`
	UserID          uuid.UUID               `json:"user_id" db:"user_id"`
	Status          Status                  `json:"status" db:"status"`
	PaymentStatus   PaymentStatus           `json:"payment_status" db:"payment_status"`
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
