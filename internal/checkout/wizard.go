package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/Stavickiy/internet-store/internal/cart"
)

// ErrMissingCheckoutState signals that a later wizard step was reached
// without completing the prior ones. This is a contract violation, not a
// condition to default away.
var ErrMissingCheckoutState = errors.New("checkout step reached out of order")

var (
	ErrUnknownDelivery = errors.New("unknown delivery option")
	ErrUnknownPayment  = errors.New("unknown payment type")
)

type CartCalculator interface {
	Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error)
}

// Review is the step-4 view: totals recomputed fresh from the cart with the
// delivery surcharge applied for display only.
type Review struct {
	Totals            cart.Totals `json:"totals"`
	DeliverySurcharge int64       `json:"delivery_surcharge"`
	TotalWithDelivery int64       `json:"total_with_delivery"`
	State             *State      `json:"state"`
}

// Wizard is the strictly sequential four-step checkout state machine:
// summary -> delivery -> recipient -> payment/review. Each step persists
// its submission into the session state and validates that the prior steps
// actually ran.
type Wizard struct {
	store    Store
	carts    CartCalculator
	validate *validator.Validate
}

func NewWizard(store Store, carts CartCalculator) *Wizard {
	return &Wizard{store: store, carts: carts, validate: validator.New()}
}

// ApplyPromoCode stashes a submitted code into the session. Validation
// happens on every cart computation, not here.
func (w *Wizard) ApplyPromoCode(ctx context.Context, userID uuid.UUID, code string) error {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	state.PromoCode = code
	return w.store.Save(ctx, userID, state)
}

// PromoCode returns the code currently stored in the session, empty when
// none has been applied.
func (w *Wizard) PromoCode(ctx context.Context, userID uuid.UUID) (string, error) {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return state.PromoCode, nil
}

// Summary is step 1: recompute the cart and snapshot its totals into the
// session. No delivery choice is committed yet.
func (w *Wizard) Summary(ctx context.Context, userID uuid.UUID) (*State, cart.Totals, error) {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return nil, cart.Totals{}, err
	}

	totals, err := w.carts.Compute(ctx, userID, state.PromoCode)
	if err != nil {
		return nil, cart.Totals{}, err
	}

	state.TotalPrice = totals.TotalPrice
	state.WithoutDiscount = totals.WithoutDiscount
	state.DiscountSum = totals.DiscountSum
	state.SummaryDone = true
	state.DeliveryDone = false
	state.RecipientDone = false
	state.PaymentDone = false

	if err := w.store.Save(ctx, userID, state); err != nil {
		return nil, cart.Totals{}, err
	}
	return state, totals, nil
}

// SetDelivery is step 2. The mail surcharge is set, not added, so
// re-entering the step can never apply it twice.
func (w *Wizard) SetDelivery(ctx context.Context, userID uuid.UUID, option DeliveryOption) (*State, error) {
	if option != DeliveryPickup && option != DeliveryMail {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDelivery, option)
	}

	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !state.SummaryDone {
		return nil, fmt.Errorf("%w: delivery before summary", ErrMissingCheckoutState)
	}

	state.DeliveryOption = option
	state.DeliverySurcharge = 0
	if option == DeliveryMail {
		state.DeliverySurcharge = MailSurcharge
	}
	state.DeliveryDone = true

	if err := w.store.Save(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetRecipient is step 3. Required fields depend on the chosen delivery
// option; mail additionally needs the full address with a 6-digit postal
// code.
func (w *Wizard) SetRecipient(ctx context.Context, userID uuid.UUID, r Recipient) (*State, error) {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !state.SummaryDone || !state.DeliveryDone {
		return nil, fmt.Errorf("%w: recipient before delivery", ErrMissingCheckoutState)
	}

	if err := w.validate.Struct(r); err != nil {
		return nil, err
	}
	if state.DeliveryOption == DeliveryMail {
		if err := w.validate.Var(r.MiddleName, "required"); err != nil {
			return nil, fmt.Errorf("middle name is required for mail delivery: %w", err)
		}
		if err := w.validate.Var(r.Region, "required"); err != nil {
			return nil, fmt.Errorf("region is required for mail delivery: %w", err)
		}
		if err := w.validate.Var(r.City, "required"); err != nil {
			return nil, fmt.Errorf("city is required for mail delivery: %w", err)
		}
		if err := w.validate.Var(r.Address, "required"); err != nil {
			return nil, fmt.Errorf("street address is required for mail delivery: %w", err)
		}
		if err := w.validate.Var(r.PostalCode, "required,len=6,numeric"); err != nil {
			return nil, fmt.Errorf("postal code must be 6 digits: %w", err)
		}
	}

	state.Recipient = r
	state.RecipientDone = true

	if err := w.store.Save(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetPayment is step 4: persist the payment choice and build the review
// with totals recomputed fresh from the cart, not from the session cache.
func (w *Wizard) SetPayment(ctx context.Context, userID uuid.UUID, payment PaymentType) (*Review, error) {
	if payment != PaymentCash && payment != PaymentByCard {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayment, payment)
	}

	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !state.SummaryDone || !state.DeliveryDone || !state.RecipientDone {
		return nil, fmt.Errorf("%w: payment before recipient", ErrMissingCheckoutState)
	}

	state.PaymentType = payment
	state.PaymentDone = true
	if err := w.store.Save(ctx, userID, state); err != nil {
		return nil, err
	}

	totals, err := w.carts.Compute(ctx, userID, state.PromoCode)
	if err != nil {
		return nil, err
	}

	return &Review{
		Totals:            totals,
		DeliverySurcharge: state.DeliverySurcharge,
		TotalWithDelivery: totals.TotalPrice + state.DeliverySurcharge,
		State:             state,
	}, nil
}

// State returns the current session state for the order materializer. All
// four steps must be complete.
func (w *Wizard) State(ctx context.Context, userID uuid.UUID) (*State, error) {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !state.SummaryDone || !state.DeliveryDone || !state.RecipientDone || !state.PaymentDone {
		return nil, fmt.Errorf("%w: order creation before completing checkout", ErrMissingCheckoutState)
	}
	return state, nil
}

// ClearAfterOrder drops the promo code and the step flags once an order is
// materialized. Remaining fields go stale but are unreachable without a new
// pass through the wizard.
func (w *Wizard) ClearAfterOrder(ctx context.Context, userID uuid.UUID) error {
	state, err := w.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	state.PromoCode = ""
	state.SummaryDone = false
	state.DeliveryDone = false
	state.RecipientDone = false
	state.PaymentDone = false
	return w.store.Save(ctx, userID, state)
}
