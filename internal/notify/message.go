package notify

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

const (
	KindOrderCreated    = "order.created"
	KindPreorderCreated = "preorder.created"
	KindStatusChanged   = "order.status_changed"
	KindPaymentChanged  = "order.payment_status_changed"
)

// Message is one outgoing email. It is written to the outbox inside the
// order transaction and delivered out-of-band by the notifier worker.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Recipients []string  `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}

func newMessage(kind, subject, body string, recipients []string) Message {
	return Message{
		ID:         uuid.Must(uuid.NewV4()),
		Kind:       kind,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		CreatedAt:  time.Now().UTC(),
	}
}

func NewOrderCreated(orderID uuid.UUID, customerEmail, operatorEmail string) Message {
	return newMessage(
		KindOrderCreated,
		fmt.Sprintf("Your order #%s has been placed", shortID(orderID)),
		fmt.Sprintf("Your order #%s has been placed. Our manager will contact you shortly to confirm the order and delivery details.", shortID(orderID)),
		[]string{customerEmail, operatorEmail},
	)
}

func NewPreorderCreated(orderID uuid.UUID, customerEmail, operatorEmail string) Message {
	return newMessage(
		KindPreorderCreated,
		fmt.Sprintf("Your pre-order #%s has been placed", shortID(orderID)),
		fmt.Sprintf("Your pre-order #%s has been placed. Our manager will contact you shortly to confirm the pre-order and delivery details.", shortID(orderID)),
		[]string{customerEmail, operatorEmail},
	)
}

func NewStatusChanged(orderID uuid.UUID, statusLabel, customerEmail, operatorEmail string) Message {
	return newMessage(
		KindStatusChanged,
		fmt.Sprintf("Order #%s status changed", shortID(orderID)),
		fmt.Sprintf("The status of your order #%s changed to %q.", shortID(orderID), statusLabel),
		[]string{customerEmail, operatorEmail},
	)
}

func NewPaymentStatusChanged(orderID uuid.UUID, paymentLabel, customerEmail, operatorEmail string) Message {
	return newMessage(
		KindPaymentChanged,
		fmt.Sprintf("Order #%s payment status changed", shortID(orderID)),
		fmt.Sprintf("The payment status of your order #%s changed to %q.", shortID(orderID), paymentLabel),
		[]string{customerEmail, operatorEmail},
	)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
