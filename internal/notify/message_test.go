package notify_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Stavickiy/internet-store/internal/notify"
)

func TestMessageConstructors(t *testing.T) {
	orderID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

	t.Run("order_created", func(t *testing.T) {
		msg := notify.NewOrderCreated(orderID, "ivan@example.com", "orders@herbstore.local")

		assert.Equal(t, notify.KindOrderCreated, msg.Kind)
		assert.NotEqual(t, uuid.Nil, msg.ID)
		// subject and body carry the short order id, not the full UUID
		assert.Contains(t, msg.Subject, "#550e8400")
		assert.Contains(t, msg.Body, "#550e8400")
		assert.Equal(t, []string{"ivan@example.com", "orders@herbstore.local"}, msg.Recipients)
		assert.False(t, msg.CreatedAt.IsZero())
	})

	t.Run("status_changed", func(t *testing.T) {
		msg := notify.NewStatusChanged(orderID, "Ready for issue", "ivan@example.com", "orders@herbstore.local")

		assert.Equal(t, notify.KindStatusChanged, msg.Kind)
		assert.Contains(t, msg.Body, `"Ready for issue"`)
	})

	t.Run("payment_status_changed", func(t *testing.T) {
		msg := notify.NewPaymentStatusChanged(orderID, "Paid", "ivan@example.com", "orders@herbstore.local")

		assert.Equal(t, notify.KindPaymentChanged, msg.Kind)
		assert.Contains(t, msg.Body, `"Paid"`)
	})

	t.Run("unique_ids", func(t *testing.T) {
		a := notify.NewPreorderCreated(orderID, "a@example.com", "b@example.com")
		b := notify.NewPreorderCreated(orderID, "a@example.com", "b@example.com")
		assert.NotEqual(t, a.ID, b.ID)
	})
}
