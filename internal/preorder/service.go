package preorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/notify"
	"github.com/Stavickiy/internet-store/internal/order"
)

var ErrEmptyBasket = errors.New("pre-order cart is empty")

type Calculator interface {
	Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error)
}

type CheckoutState interface {
	State(ctx context.Context, userID uuid.UUID) (*checkout.State, error)
	ClearAfterOrder(ctx context.Context, userID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID) (*PreOrder, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*PreOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]PreOrder, error)
	Cancel(ctx context.Context, id uuid.UUID) (*PreOrder, error)
	UpdateStatuses(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *order.PaymentStatus) (*PreOrder, error)
}

type service struct {
	repo          Repository
	basket        Calculator
	checkout      CheckoutState
	operatorEmail string
}

func NewService(repo Repository, basket Calculator, checkoutState CheckoutState, operatorEmail string) Service {
	return &service{repo: repo, basket: basket, checkout: checkoutState, operatorEmail: operatorEmail}
}

// Create materializes the pre-order from its basket and the completed
// checkout session. Promo codes never apply to pre-orders, so the session's
// code is not passed down.
func (s *service) Create(ctx context.Context, userID uuid.UUID) (*PreOrder, error) {
	state, err := s.checkout.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals, err := s.basket.Compute(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("service: failed to compute pre-order cart: %w", err)
	}
	if len(totals.Lines) == 0 {
		return nil, ErrEmptyBasket
	}

	p := &PreOrder{
		ID:              uuid.Must(uuid.NewV4()),
		UserID:          userID,
		Status:          order.StatusNew,
		PaymentStatus:   order.PaymentUnpaid,
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
		p.Items = append(p.Items, Item{
			ID:        uuid.Must(uuid.NewV4()),
			OrderID:   p.ID,
			ProductID: line.Product.ID,
			Title:     line.Product.Title,
			Quantity:  line.Quantity,
			Price:     line.Product.FinalPrice,
			Sum:       line.Sum,
			Discount:  line.Discount,
		})
	}

	msg := notify.NewPreorderCreated(p.ID, p.Email, s.operatorEmail)
	if err := s.repo.Create(ctx, p, msg); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create pre-order")
		return nil, err
	}

	if err := s.checkout.ClearAfterOrder(ctx, userID); err != nil {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: failed to clear pre-order checkout session")
	}

	log.Info().Stringer("preorder_id", p.ID).Stringer("user_id", userID).Msg("service: pre-order created")
	return p, nil
}

func (s *service) GetByID(ctx context.Context, userID, id uuid.UUID) (*PreOrder, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to fetch pre-order %s: %w", id, err)
	}
	if p.UserID != userID {
		return nil, ErrPreOrderNotFound
	}
	return p, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]PreOrder, error) {
	preorders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch user pre-orders: %w", err)
	}
	return preorders, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*PreOrder, error) {
	p, err := s.repo.Cancel(ctx, id, func(p *PreOrder) notify.Message {
		return notify.NewStatusChanged(p.ID, StatusLabel(order.StatusCanceled), p.Email, s.operatorEmail)
	})
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) || errors.Is(err, ErrAlreadyCanceled) || errors.Is(err, ErrInvalidStatusTransition) {
			return nil, err
		}
		log.Error().Err(err).Stringer("preorder_id", id).Msg("service: failed to cancel pre-order")
		return nil, fmt.Errorf("service: failed to cancel pre-order %s: %w", id, err)
	}

	log.Info().Stringer("preorder_id", id).Msg("service: pre-order canceled, preorder counters unwound")
	return p, nil
}

func (s *service) UpdateStatuses(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *order.PaymentStatus) (*PreOrder, error) {
	p, err := s.repo.ApplyStatusUpdate(ctx, id, newStatus, newPayment,
		func(p *PreOrder) notify.Message {
			return notify.NewStatusChanged(p.ID, StatusLabel(p.Status), p.Email, s.operatorEmail)
		},
		func(p *PreOrder) notify.Message {
			return notify.NewPaymentStatusChanged(p.ID, p.PaymentStatus.Label(), p.Email, s.operatorEmail)
		},
	)
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) || errors.Is(err, ErrInvalidStatusTransition) {
			return nil, err
		}
		log.Error().Err(err).Stringer("preorder_id", id).Msg("service: failed to update pre-order statuses")
		return nil, fmt.Errorf("service: failed to update pre-order %s: %w", id, err)
	}
	return p, nil
}
