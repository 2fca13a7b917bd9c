package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Stavickiy/internet-store/internal/catalog"
)

var ErrLineNotFound = errors.New("cart line not found")

type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Line, error)
	GetByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error)
	Add(ctx context.Context, userID uuid.UUID, productID int64) error
	SetQuantity(ctx context.Context, lineID int64, quantity int) error
	Remove(ctx context.Context, userID uuid.UUID, lineID int64) error
}

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.user_id, c.quantity, c.added_at,
		       p.id, p.title, p.product_code, p.base_price, p.stock_count, p.preorder_count,
		       p.total_sold, p.markup_percent, p.discount, p.weight, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		var p catalog.Product
		err := rows.Scan(
			&l.ID, &l.UserID, &l.Quantity, &l.AddedAt,
			&p.ID, &p.Title, &p.ProductCode, &p.BasePrice, &p.StockCount, &p.PreorderCount,
			&p.TotalSold, &p.MarkupPercent, &p.Discount, &p.Weight, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line: %w", err)
		}
		l.Product = p
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines: %w", err)
	}
	return lines, nil
}

func (r *repository) GetByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error) {
	var l Line
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, quantity, added_at FROM cart_items
		WHERE user_id = $1 AND product_id = $2`, userID, productID).
		Scan(&l.ID, &l.UserID, &l.Quantity, &l.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart line: %w", err)
	}
	l.Product.ID = productID
	return &l, nil
}

func (r *repository) Add(ctx context.Context, userID uuid.UUID, productID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + 1`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to add product %d to cart: %w", productID, err)
	}
	return nil
}

func (r *repository) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete cart line %d: %w", lineID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrLineNotFound
		}
		return nil
	}

	tag, err := r.db.Exec(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, lineID, quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}
