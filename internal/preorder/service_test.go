package preorder_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/notify"
	"github.com/Stavickiy/internet-store/internal/order"
	"github.com/Stavickiy/internet-store/internal/preorder"
)

type mockRepository struct {
	createFunc            func(ctx context.Context, p *preorder.PreOrder, msg notify.Message) error
	getByIDFunc           func(ctx context.Context, id uuid.UUID) (*preorder.PreOrder, error)
	listByUserFunc        func(ctx context.Context, userID uuid.UUID) ([]preorder.PreOrder, error)
	cancelFunc            func(ctx context.Context, id uuid.UUID, compose preorder.MessageFunc) (*preorder.PreOrder, error)
	applyStatusUpdateFunc func(ctx context.Context, id uuid.UUID, newStatus *preorder.Status, newPayment *order.PaymentStatus, composeStatus, composePayment preorder.MessageFunc) (*preorder.PreOrder, error)
}

func (m *mockRepository) Create(ctx context.Context, p *preorder.PreOrder, msg notify.Message) error {
	return m.createFunc(ctx, p, msg)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*preorder.PreOrder, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]preorder.PreOrder, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockRepository) Cancel(ctx context.Context, id uuid.UUID, compose preorder.MessageFunc) (*preorder.PreOrder, error) {
	return m.cancelFunc(ctx, id, compose)
}

func (m *mockRepository) ApplyStatusUpdate(ctx context.Context, id uuid.UUID, newStatus *preorder.Status, newPayment *order.PaymentStatus, composeStatus, composePayment preorder.MessageFunc) (*preorder.PreOrder, error) {
	return m.applyStatusUpdateFunc(ctx, id, newStatus, newPayment, composeStatus, composePayment)
}

type mockCalculator struct {
	totals    cart.Totals
	err       error
	lastPromo string
}

func (m *mockCalculator) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
	m.lastPromo = promoCode
	return m.totals, m.err
}

type mockCheckout struct {
	state      *checkout.State
	stateErr   error
	clearCalls int
}

func (m *mockCheckout) State(ctx context.Context, userID uuid.UUID) (*checkout.State, error) {
	return m.state, m.stateErr
}

func (m *mockCheckout) ClearAfterOrder(ctx context.Context, userID uuid.UUID) error {
	m.clearCalls++
	return nil
}

var testUser = uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000"))

const operatorEmail = "orders@herbstore.local"

func completedState() *checkout.State {
	return &checkout.State{
		DeliveryOption:    checkout.DeliveryPickup,
		DeliverySurcharge: 0,
		PaymentType:       checkout.PaymentByCard,
		PromoCode:         "SPRING10",
		Recipient: checkout.Recipient{
			LastName:  "Ivanov",
			FirstName: "Ivan",
			Email:     "ivan@example.com",
			Phone:     "+79990001122",
		},
		SummaryDone:   true,
		DeliveryDone:  true,
		RecipientDone: true,
		PaymentDone:   true,
	}
}

func sampleTotals() cart.Totals {
	return cart.Totals{
		Lines: []cart.PricedLine{
			{
				ID: 1,
				Product: catalog.PricedProduct{
					Product:    catalog.Product{ID: 7, Title: "Vitamin A", Discount: 10},
					FinalPrice: 130,
					SalePrice:  117,
				},
				Quantity: 3,
				Discount: 10,
				Sum:      351,
			},
		},
		TotalPrice:      351,
		WithoutDiscount: 390,
		DiscountSum:     39,
	}
}

func TestService_Create(t *testing.T) {
	t.Run("snapshots_basket_and_session", func(t *testing.T) {
		var created *preorder.PreOrder
		var createdMsg notify.Message
		repo := &mockRepository{
			createFunc: func(ctx context.Context, p *preorder.PreOrder, msg notify.Message) error {
				created = p
				createdMsg = msg
				return nil
			},
		}
		co := &mockCheckout{state: completedState()}
		calc := &mockCalculator{totals: sampleTotals()}
		svc := preorder.NewService(repo, calc, co, operatorEmail)

		p, err := svc.Create(context.Background(), testUser)

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, order.StatusNew, created.Status)
		assert.Equal(t, order.PaymentUnpaid, created.PaymentStatus)
		assert.Equal(t, int64(351), created.TotalPrice)
		assert.Equal(t, "ivan@example.com", created.Email)

		require.Len(t, created.Items, 1)
		item := created.Items[0]
		assert.Equal(t, int64(7), item.ProductID)
		assert.Equal(t, 3, item.Quantity)
		assert.Equal(t, int64(130), item.Price)
		assert.Equal(t, int64(351), item.Sum)

		// the session's promo code must never reach the pre-order calculator
		assert.Empty(t, calc.lastPromo)

		assert.Equal(t, notify.KindPreorderCreated, createdMsg.Kind)
		assert.Equal(t, []string{"ivan@example.com", operatorEmail}, createdMsg.Recipients)

		assert.Equal(t, 1, co.clearCalls)
		assert.Equal(t, created.ID, p.ID)
	})

	t.Run("incomplete_checkout_rejected", func(t *testing.T) {
		co := &mockCheckout{stateErr: checkout.ErrMissingCheckoutState}
		svc := preorder.NewService(&mockRepository{}, &mockCalculator{}, co, operatorEmail)

		_, err := svc.Create(context.Background(), testUser)

		assert.ErrorIs(t, err, checkout.ErrMissingCheckoutState)
		assert.Zero(t, co.clearCalls)
	})

	t.Run("empty_basket_rejected", func(t *testing.T) {
		co := &mockCheckout{state: completedState()}
		svc := preorder.NewService(&mockRepository{}, &mockCalculator{totals: cart.Totals{}}, co, operatorEmail)

		_, err := svc.Create(context.Background(), testUser)

		assert.ErrorIs(t, err, preorder.ErrEmptyBasket)
	})
}

func TestService_Cancel(t *testing.T) {
	t.Run("composes_status_changed_message", func(t *testing.T) {
		id := uuid.Must(uuid.NewV4())
		repo := &mockRepository{
			cancelFunc: func(ctx context.Context, id uuid.UUID, compose preorder.MessageFunc) (*preorder.PreOrder, error) {
				p := &preorder.PreOrder{ID: id, Status: order.StatusCanceled, Email: "ivan@example.com"}
				msg := compose(p)
				assert.Equal(t, notify.KindStatusChanged, msg.Kind)
				assert.Contains(t, msg.Body, "Canceled")
				return p, nil
			},
		}
		svc := preorder.NewService(repo, &mockCalculator{}, &mockCheckout{}, operatorEmail)

		p, err := svc.Cancel(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, order.StatusCanceled, p.Status)
	})

	t.Run("already_canceled_passthrough", func(t *testing.T) {
		repo := &mockRepository{
			cancelFunc: func(ctx context.Context, id uuid.UUID, compose preorder.MessageFunc) (*preorder.PreOrder, error) {
				return nil, preorder.ErrAlreadyCanceled
			},
		}
		svc := preorder.NewService(repo, &mockCalculator{}, &mockCheckout{}, operatorEmail)

		_, err := svc.Cancel(context.Background(), uuid.Must(uuid.NewV4()))

		assert.ErrorIs(t, err, preorder.ErrAlreadyCanceled)
	})
}

func TestService_UpdateStatuses(t *testing.T) {
	ordering := preorder.StatusOrdering

	repo := &mockRepository{
		applyStatusUpdateFunc: func(ctx context.Context, id uuid.UUID, ns *preorder.Status, np *order.PaymentStatus, composeStatus, composePayment preorder.MessageFunc) (*preorder.PreOrder, error) {
			p := &preorder.PreOrder{ID: id, Status: *ns, Email: "ivan@example.com"}

			msg := composeStatus(p)
			assert.Equal(t, notify.KindStatusChanged, msg.Kind)
			assert.Contains(t, msg.Body, "Ordering")
			return p, nil
		},
	}
	svc := preorder.NewService(repo, &mockCalculator{}, &mockCheckout{}, operatorEmail)

	p, err := svc.UpdateStatuses(context.Background(), uuid.Must(uuid.NewV4()), &ordering, nil)

	require.NoError(t, err)
	assert.Equal(t, preorder.StatusOrdering, p.Status)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to preorder.Status
		want     bool
	}{
		{order.StatusNew, preorder.StatusOrdering, true},
		{order.StatusNew, order.StatusProcessing, true},
		{preorder.StatusOrdering, order.StatusProcessing, true},
		{preorder.StatusOrdering, order.StatusShipped, true},
		{order.StatusProcessing, preorder.StatusOrdering, false},
		{order.StatusShipped, order.StatusExecuted, true},
		{order.StatusExecuted, order.StatusCanceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, preorder.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
