package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/notify"
)

var ErrEmptyCart = errors.New("cart is empty")

type CartCalculator interface {
	Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error)
}

// CheckoutState exposes the wizard to the materializer: a fully completed
// session, and cleanup after the order committed.
type CheckoutState interface {
	State(ctx context.Context, userID uuid.UUID) (*checkout.State, error)
	ClearAfterOrder(ctx context.Context, userID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID) (*Order, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatuses(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *PaymentStatus) (*Order, error)
}

type service struct {
	repo          Repository
	carts         CartCalculator
	checkout      CheckoutState
	operatorEmail string
}

func NewService(repo Repository, carts CartCalculator, checkoutState CheckoutState, operatorEmail string) Service {
	return &service{repo: repo, carts: carts, checkout: checkoutState, operatorEmail: operatorEmail}
}

// Create converts the validated cart plus the completed checkout session
// into an immutable order. All stock mutations, snapshots, cart cleanup and
// the confirmation notification ride one transaction in the repository; the
// session cleanup happens after commit and is best-effort.
func (s *service) Create(ctx context.Context, userID uuid.UUID) (*Order, error) {
	state, err := s.checkout.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals, err := s.carts.Compute(ctx, userID, state.PromoCode)
	if err != nil {
		return nil, fmt.Errorf("service: failed to compute cart: %w", err)
	}
	if len(totals.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		ID:              uuid.Must(uuid.NewV4()),
		UserID:          userID,
		Status:          StatusNew,
		PaymentStatus:   PaymentUnpaid,
		TypeDelivery:    state.DeliveryOption,
		TypePayment:     state.PaymentType,
		TotalPrice:      totals.TotalPrice + state.DeliverySurcharge,
		WithoutDiscount: totals.WithoutDiscount,
		DiscountSum:     totals.DiscountSum,
		ShippingAddress: state.ShippingAddress(),
		Email:           state.Recipient.Email,
		PhoneNumber:     state.Recipient.Phone,
		Comment:         state.Recipient.Comment,
		Items:           make([]Item, 0, len(totals.Lines)),
	}

	for _, line := range totals.Lines {
		o.Items = append(o.Items, Item{
			ID:        uuid.Must(uuid.NewV4()),
			OrderID:   o.ID,
			ProductID: line.Product.ID,
			Title:     line.Product.Title,
			Quantity:  line.Quantity,
			Price:     line.Product.FinalPrice,
			Sum:       line.Sum,
			Discount:  line.Discount,
		})
	}

	msg := notify.NewOrderCreated(o.ID, o.Email, s.operatorEmail)
	if err := s.repo.Create(ctx, o, msg); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create order")
		return nil, err
	}

	if err := s.checkout.ClearAfterOrder(ctx, userID); err != nil {
		// the order is durable; a stale session only forces a new wizard pass
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: failed to clear checkout session")
	}

	log.Info().Stringer("order_id", o.ID).Stringer("user_id", userID).Msg("service: order created")
	return o, nil
}

func (s *service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to fetch order %s: %w", id, err)
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.Cancel(ctx, id, func(o *Order) notify.Message {
		return notify.NewStatusChanged(o.ID, StatusCanceled.Label(), o.Email, s.operatorEmail)
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrAlreadyCanceled) || errors.Is(err, ErrInvalidStatusTransition) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to cancel order")
		return nil, fmt.Errorf("service: failed to cancel order %s: %w", id, err)
	}

	log.Info().Stringer("order_id", id).Msg("service: order canceled, stock credited")
	return o, nil
}

// UpdateStatuses applies an administrative edit to the status axes. Exactly
// one notification is enqueued per update; when both axes change in the
// same edit only the status-change email goes out.
func (s *service) UpdateStatuses(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *PaymentStatus) (*Order, error) {
	o, err := s.repo.ApplyStatusUpdate(ctx, id, newStatus, newPayment,
		func(o *Order) notify.Message {
			return notify.NewStatusChanged(o.ID, o.Status.Label(), o.Email, s.operatorEmail)
		},
		func(o *Order) notify.Message {
			return notify.NewPaymentStatusChanged(o.ID, o.PaymentStatus.Label(), o.Email, s.operatorEmail)
		},
	)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidStatusTransition) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to update order statuses")
		return nil, fmt.Errorf("service: failed to update order %s: %w", id, err)
	}
	return o, nil
}
