package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError is returned by the ledger when a decrement would
// drive the stock counter below zero.
type InsufficientStockError struct {
	ProductID int64
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

// DB is satisfied by both *pgxpool.Pool and pgx.Tx, so ledger operations
// compose into the order transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const productColumns = `id, title, product_code, base_price, stock_count, preorder_count,
		total_sold, markup_percent, discount, weight, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.ProductCode,
		&p.BasePrice,
		&p.StockCount,
		&p.PreorderCount,
		&p.TotalSold,
		&p.MarkupPercent,
		&p.Discount,
		&p.Weight,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to select product %d: %w", id, err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY stock_count DESC, total_sold DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.ProductCode,
			&p.BasePrice,
			&p.StockCount,
			&p.PreorderCount,
			&p.TotalSold,
			&p.MarkupPercent,
			&p.Discount,
			&p.Weight,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

// Params reads the singleton pricing row. Never cached.
func (r *Repository) Params(ctx context.Context) (PricingParams, error) {
	var params PricingParams
	err := r.db.QueryRow(ctx, `SELECT markup_percent, exchange_rate, cost_per_kg FROM pricing_params`).
		Scan(&params.MarkupPercent, &params.ExchangeRate, &params.CostPerKg)
	if err != nil {
		return PricingParams{}, fmt.Errorf("repository: failed to select pricing params: %w", err)
	}
	return params, nil
}

// LockStock takes a row lock on the product and returns its current stock
// count. Call inside a transaction before DecreaseStock so concurrent
// checkouts serialize on the counter.
func (r *Repository) LockStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := r.db.QueryRow(ctx, `SELECT stock_count FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("repository: failed to lock product %d: %w", productID, err)
	}
	return stock, nil
}

// DecreaseStock subtracts qty from the stock counter. It fails with
// *InsufficientStockError when qty exceeds the available stock and leaves
// the counter unchanged.
func (r *Repository) DecreaseStock(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET stock_count = stock_count - $2, updated_at = now()
		 WHERE id = $1 AND stock_count >= $2`, productID, qty)
	if err != nil {
		return fmt.Errorf("repository: failed to decrease stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		var title string
		var available int
		err := r.db.QueryRow(ctx, `SELECT title, stock_count FROM products WHERE id = $1`, productID).
			Scan(&title, &available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("repository: failed to inspect product %d: %w", productID, err)
		}
		return &InsufficientStockError{ProductID: productID, Title: title, Requested: qty, Available: available}
	}
	return nil
}

// IncreaseStock adds qty back unconditionally (cancellation, restock).
func (r *Repository) IncreaseStock(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET stock_count = stock_count + $2, updated_at = now() WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("repository: failed to increase stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) IncreasePreorder(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET preorder_count = preorder_count + $2, updated_at = now() WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("repository: failed to increase preorder count for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecreasePreorder clamps at zero instead of failing. The preorder counter
// is advisory, unlike stock.
func (r *Repository) DecreasePreorder(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET preorder_count = GREATEST(preorder_count - $2, 0), updated_at = now() WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("repository: failed to decrease preorder count for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// RecordSale increments total_sold. Deliberately separate from the stock
// decrement; the materializer calls both.
func (r *Repository) RecordSale(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET total_sold = total_sold + $2, updated_at = now() WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("repository: failed to record sale for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
