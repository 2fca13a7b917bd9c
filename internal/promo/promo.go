package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PromoCode is a site-wide discount token. Admin-managed, read-only to the
// storefront, never expires on its own.
type PromoCode struct {
	ID       int64  `json:"id" db:"id"`
	Code     string `json:"code" db:"code"`
	IsActive bool   `json:"is_active" db:"is_active"`
	Discount int    `json:"discount" db:"discount"`
	MinSum   int64  `json:"min_sum" db:"min_sum"`
}

// Rejection reasons, each with its own user-facing message.
var (
	ErrNoCode       = errors.New("no promo code entered")
	ErrUnknownCode  = errors.New("invalid promo code")
	ErrCodeInactive = errors.New("promo code is not active")
)

// MinSumError reports an unmet minimum-order threshold. Informational: the
// promo is simply not applied, checkout proceeds without it.
type MinSumError struct {
	Code   string
	MinSum int64
}

func (e *MinSumError) Error() string {
	return fmt.Sprintf("cart total must be at least %d to apply promo code %q", e.MinSum, e.Code)
}

type Repository interface {
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
}

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	var p PromoCode
	err := r.db.QueryRow(ctx,
		`SELECT id, code, is_active, discount, min_sum FROM promo_codes WHERE code = $1`, code).
		Scan(&p.ID, &p.Code, &p.IsActive, &p.Discount, &p.MinSum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownCode
		}
		return nil, fmt.Errorf("repository: failed to select promo code %q: %w", code, err)
	}
	return &p, nil
}

// Validator checks a promo code against the current cart gross total and
// yields the discount percent to merge into per-item pricing.
type Validator struct {
	repo Repository
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo}
}

// Validate short-circuits on the first failed check: empty code, unknown
// code, inactive code, unmet minimum. cartGross is the pre-discount cart
// total (sum of quantity * final price).
func (v *Validator) Validate(ctx context.Context, code string, cartGross int64) (int, error) {
	if code == "" {
		return 0, ErrNoCode
	}

	p, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}

	if !p.IsActive {
		return 0, ErrCodeInactive
	}

	if p.MinSum > 0 && cartGross < p.MinSum {
		return 0, &MinSumError{Code: p.Code, MinSum: p.MinSum}
	}

	return p.Discount, nil
}
