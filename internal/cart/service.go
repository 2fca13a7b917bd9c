package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/catalog"
)

// ErrMinQuantity is returned when a decrement would take a line below 1.
var ErrMinQuantity = errors.New("cart line quantity cannot drop below 1")

type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
	Params(ctx context.Context) (catalog.PricingParams, error)
}

type PromoValidator interface {
	Validate(ctx context.Context, code string, cartGross int64) (int, error)
}

// Aggregator owns the mutable basket: add/decrement/remove plus the
// side-effecting Reconcile+Compute read path.
type Aggregator struct {
	repo     Repository
	products ProductStore
	promo    PromoValidator
}

func NewAggregator(repo Repository, products ProductStore, promo PromoValidator) *Aggregator {
	return &Aggregator{repo: repo, products: products, promo: promo}
}

// AddProduct puts one unit into the cart, or bumps an existing line by one.
// The add is blocked when free stock (stock minus what is already in the
// cart) is exhausted.
func (a *Aggregator) AddProduct(ctx context.Context, userID uuid.UUID, productID int64) error {
	product, err := a.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	line, err := a.repo.GetByProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, ErrLineNotFound) {
		return err
	}

	inCart := 0
	if line != nil {
		inCart = line.Quantity
	}
	if product.StockCount-inCart < 1 {
		return &catalog.InsufficientStockError{
			ProductID: product.ID,
			Title:     product.Title,
			Requested: inCart + 1,
			Available: product.StockCount,
		}
	}

	return a.repo.Add(ctx, userID, productID)
}

// Decrement lowers a line's quantity by one; removal below 1 must be
// explicit via Remove.
func (a *Aggregator) Decrement(ctx context.Context, userID uuid.UUID, productID int64) error {
	line, err := a.repo.GetByProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	if line.Quantity <= 1 {
		return ErrMinQuantity
	}
	return a.repo.SetQuantity(ctx, line.ID, line.Quantity-1)
}

func (a *Aggregator) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	return a.repo.Remove(ctx, userID, lineID)
}

// Reconcile clamps each line's quantity down to the available stock and
// persists the correction. Lines clamped to zero are deleted. Returns the
// surviving lines and user-facing warnings. This is the explicit form of
// the "viewing the cart can mutate it" behavior, so the read path stays
// honest about its side effects.
func (a *Aggregator) Reconcile(ctx context.Context, lines []Line) ([]Line, []string, error) {
	kept := make([]Line, 0, len(lines))
	var warnings []string

	for _, l := range lines {
		if l.Product.StockCount >= l.Quantity && l.Quantity >= 1 {
			kept = append(kept, l)
			continue
		}

		warnings = append(warnings,
			fmt.Sprintf("Insufficient quantity: %s! Available: %d pcs.", l.Product.Title, l.Product.StockCount))

		if err := a.repo.SetQuantity(ctx, l.ID, l.Product.StockCount); err != nil {
			return nil, nil, fmt.Errorf("failed to persist corrected quantity for line %d: %w", l.ID, err)
		}
		if l.Product.StockCount >= 1 {
			l.Quantity = l.Product.StockCount
			kept = append(kept, l)
		}
	}

	return kept, warnings, nil
}

// Compute reconciles the cart and produces its priced view. The promo code
// is validated against the pre-discount gross total; when accepted, each
// line's effective discount becomes max(product discount, promo discount) —
// never the sum. A rejected promo never aborts the computation, it is
// reported as a warning and simply not applied.
func (a *Aggregator) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (Totals, error) {
	lines, err := a.repo.ListByUser(ctx, userID)
	if err != nil {
		return Totals{}, err
	}

	lines, warnings, err := a.Reconcile(ctx, lines)
	if err != nil {
		return Totals{}, err
	}

	totals := Totals{Lines: make([]PricedLine, 0, len(lines)), Warnings: warnings}
	if len(lines) == 0 {
		return totals, nil
	}

	params, err := a.products.Params(ctx)
	if err != nil {
		return Totals{}, err
	}

	var gross int64
	for _, l := range lines {
		gross += int64(l.Quantity) * catalog.Price(l.Product, params).FinalPrice
	}

	promoDiscount := 0
	if promoCode != "" {
		promoDiscount, err = a.promo.Validate(ctx, promoCode, gross)
		if err != nil {
			log.Debug().Err(err).Str("code", promoCode).Msg("promo code rejected")
			totals.Warnings = append(totals.Warnings, err.Error())
			promoCode = ""
		}
	}
	totals.PromoCode = promoCode

	for _, l := range lines {
		product := l.Product
		if promoDiscount > product.Discount {
			product.Discount = promoDiscount
		}
		priced := catalog.Price(product, params)
		sum := int64(l.Quantity) * priced.EffectivePrice()

		totals.Lines = append(totals.Lines, PricedLine{
			ID:       l.ID,
			Product:  priced,
			Quantity: l.Quantity,
			Discount: product.Discount,
			Sum:      sum,
		})
		totals.TotalPrice += sum
		totals.WithoutDiscount += int64(l.Quantity) * priced.FinalPrice
	}
	totals.DiscountSum = totals.WithoutDiscount - totals.TotalPrice

	return totals, nil
}
