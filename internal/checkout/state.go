package checkout

import "strings"

type DeliveryOption string

const (
	DeliveryPickup DeliveryOption = "pickup"
	DeliveryMail   DeliveryOption = "mail"
)

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentByCard PaymentType = "by_card"
)

// MailSurcharge is the fixed shipping fee added for mail delivery. It is
// stored in the state once per pass, never accumulated.
const MailSurcharge int64 = 200

// Recipient carries the step-3 form. Mail delivery requires the extra
// address fields; pickup only the short set.
type Recipient struct {
	LastName   string `json:"last_name" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Region     string `json:"region"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	Comment    string `json:"comment"`
}

// State is the per-user checkout session, persisted opaquely by the Store
// between wizard steps.
type State struct {
	TotalPrice      int64 `json:"total_price"`
	WithoutDiscount int64 `json:"total_price_without_discount"`
	DiscountSum     int64 `json:"discount"`

	DeliveryOption    DeliveryOption `json:"delivery_option,omitempty"`
	DeliverySurcharge int64          `json:"delivery_surcharge"`

	Recipient Recipient `json:"recipient"`

	PaymentType PaymentType `json:"payment_type,omitempty"`
	PromoCode   string      `json:"promo_code,omitempty"`

	SummaryDone   bool `json:"summary_done"`
	DeliveryDone  bool `json:"delivery_done"`
	RecipientDone bool `json:"recipient_done"`
	PaymentDone   bool `json:"payment_done"`
}

// ShippingAddress joins the recipient fields in the fixed order the order
// record stores them: a short form for pickup, the long form with
// region/city/street/postal code for mail.
func (s *State) ShippingAddress() string {
	r := s.Recipient
	var parts []string
	if s.DeliveryOption == DeliveryMail {
		parts = []string{
			r.LastName, r.FirstName, r.MiddleName,
			r.Email, r.Phone,
			r.Region, r.City, r.Address, r.PostalCode,
			r.Comment,
		}
	} else {
		parts = []string{r.LastName, r.FirstName, r.Email, r.Phone, r.Comment}
	}
	return strings.Join(parts, "\n")
}
