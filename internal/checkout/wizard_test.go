package checkout_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/checkout"
)

type memStore struct {
	states map[uuid.UUID]*checkout.State
}

func newMemStore() *memStore {
	return &memStore{states: make(map[uuid.UUID]*checkout.State)}
}

func (m *memStore) Get(ctx context.Context, userID uuid.UUID) (*checkout.State, error) {
	if s, ok := m.states[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return &checkout.State{}, nil
}

func (m *memStore) Save(ctx context.Context, userID uuid.UUID, state *checkout.State) error {
	copied := *state
	m.states[userID] = &copied
	return nil
}

type mockCalculator struct {
	totals cart.Totals
	calls  int
}

func (m *mockCalculator) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
	m.calls++
	return m.totals, nil
}

var testUser = uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))

func pickupRecipient() checkout.Recipient {
	return checkout.Recipient{
		LastName:  "Ivanov",
		FirstName: "Ivan",
		Email:     "ivan@example.com",
		Phone:     "+79990001122",
	}
}

func mailRecipient() checkout.Recipient {
	r := pickupRecipient()
	r.MiddleName = "Ivanovich"
	r.Region = "Rostov region"
	r.City = "Rostov-on-Don"
	r.Address = "Lenina 1"
	r.PostalCode = "344000"
	return r
}

func TestWizard_FullPass(t *testing.T) {
	store := newMemStore()
	calc := &mockCalculator{totals: cart.Totals{TotalPrice: 234, WithoutDiscount: 260, DiscountSum: 26}}
	w := checkout.NewWizard(store, calc)
	ctx := context.Background()

	state, totals, err := w.Summary(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(234), state.TotalPrice)
	assert.Equal(t, int64(234), totals.TotalPrice)

	state, err = w.SetDelivery(ctx, testUser, checkout.DeliveryMail)
	require.NoError(t, err)
	assert.Equal(t, checkout.MailSurcharge, state.DeliverySurcharge)

	state, err = w.SetRecipient(ctx, testUser, mailRecipient())
	require.NoError(t, err)
	assert.True(t, state.RecipientDone)

	review, err := w.SetPayment(ctx, testUser, checkout.PaymentCash)
	require.NoError(t, err)
	assert.Equal(t, int64(234+200), review.TotalWithDelivery)
	// step 4 recomputes from the cart, it does not trust the step-1 snapshot
	assert.Equal(t, 2, calc.calls)

	final, err := w.State(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentCash, final.PaymentType)
}

func TestWizard_MailSurchargeAppliedOnce(t *testing.T) {
	store := newMemStore()
	calc := &mockCalculator{totals: cart.Totals{TotalPrice: 1000}}
	w := checkout.NewWizard(store, calc)
	ctx := context.Background()

	_, _, err := w.Summary(ctx, testUser)
	require.NoError(t, err)

	// re-entering step 2 must not stack the surcharge
	for i := 0; i < 3; i++ {
		state, err := w.SetDelivery(ctx, testUser, checkout.DeliveryMail)
		require.NoError(t, err)
		assert.Equal(t, checkout.MailSurcharge, state.DeliverySurcharge)
	}

	// switching back to pickup removes it
	state, err := w.SetDelivery(ctx, testUser, checkout.DeliveryPickup)
	require.NoError(t, err)
	assert.Zero(t, state.DeliverySurcharge)
}

func TestWizard_PromoCodeRoundTrip(t *testing.T) {
	store := newMemStore()
	w := checkout.NewWizard(store, &mockCalculator{})
	ctx := context.Background()

	code, err := w.PromoCode(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, code)

	require.NoError(t, w.ApplyPromoCode(ctx, testUser, "BIG20"))

	code, err = w.PromoCode(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "BIG20", code)
}

func TestWizard_StepPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("delivery_before_summary", func(t *testing.T) {
		w := checkout.NewWizard(newMemStore(), &mockCalculator{})
		_, err := w.SetDelivery(ctx, testUser, checkout.DeliveryPickup)
		assert.ErrorIs(t, err, checkout.ErrMissingCheckoutState)
	})

	t.Run("recipient_before_delivery", func(t *testing.T) {
		w := checkout.NewWizard(newMemStore(), &mockCalculator{})
		_, _, err := w.Summary(ctx, testUser)
		require.NoError(t, err)
		_, err = w.SetRecipient(ctx, testUser, pickupRecipient())
		assert.ErrorIs(t, err, checkout.ErrMissingCheckoutState)
	})

	t.Run("payment_without_delivery_not_defaulted", func(t *testing.T) {
		store := newMemStore()
		w := checkout.NewWizard(store, &mockCalculator{})
		_, _, err := w.Summary(ctx, testUser)
		require.NoError(t, err)
		// no delivery option in session: step 4 must fail, never assume pickup
		_, err = w.SetPayment(ctx, testUser, checkout.PaymentCash)
		assert.ErrorIs(t, err, checkout.ErrMissingCheckoutState)
	})

	t.Run("state_before_payment", func(t *testing.T) {
		w := checkout.NewWizard(newMemStore(), &mockCalculator{})
		_, err := w.State(ctx, testUser)
		assert.ErrorIs(t, err, checkout.ErrMissingCheckoutState)
	})
}

func TestWizard_RecipientValidation(t *testing.T) {
	setup := func(opt checkout.DeliveryOption) *checkout.Wizard {
		w := checkout.NewWizard(newMemStore(), &mockCalculator{})
		_, _, err := w.Summary(context.Background(), testUser)
		require.NoError(t, err)
		_, err = w.SetDelivery(context.Background(), testUser, opt)
		require.NoError(t, err)
		return w
	}

	t.Run("pickup_short_form_ok", func(t *testing.T) {
		w := setup(checkout.DeliveryPickup)
		_, err := w.SetRecipient(context.Background(), testUser, pickupRecipient())
		assert.NoError(t, err)
	})

	t.Run("missing_email_rejected", func(t *testing.T) {
		w := setup(checkout.DeliveryPickup)
		r := pickupRecipient()
		r.Email = ""
		_, err := w.SetRecipient(context.Background(), testUser, r)
		assert.Error(t, err)
	})

	t.Run("mail_requires_address_fields", func(t *testing.T) {
		w := setup(checkout.DeliveryMail)
		_, err := w.SetRecipient(context.Background(), testUser, pickupRecipient())
		assert.Error(t, err)
	})

	t.Run("mail_postal_code_must_be_six_digits", func(t *testing.T) {
		w := setup(checkout.DeliveryMail)
		r := mailRecipient()
		r.PostalCode = "12a456"
		_, err := w.SetRecipient(context.Background(), testUser, r)
		assert.Error(t, err)
	})
}

func TestState_ShippingAddress(t *testing.T) {
	state := &checkout.State{
		DeliveryOption: checkout.DeliveryMail,
		Recipient:      mailRecipient(),
	}
	assert.Equal(t,
		"Ivanov\nIvan\nIvanovich\nivan@example.com\n+79990001122\nRostov region\nRostov-on-Don\nLenina 1\n344000\n",
		state.ShippingAddress())

	state.DeliveryOption = checkout.DeliveryPickup
	assert.Equal(t, "Ivanov\nIvan\nivan@example.com\n+79990001122\n", state.ShippingAddress())
}
