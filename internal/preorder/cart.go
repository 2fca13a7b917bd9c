package preorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/catalog"
)

var ErrLineNotFound = errors.New("pre-order cart line not found")

type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Line, error)
	GetByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error)
	Add(ctx context.Context, userID uuid.UUID, productID int64) error
	SetQuantity(ctx context.Context, lineID int64, quantity int) error
	Remove(ctx context.Context, userID uuid.UUID, lineID int64) error
	Clear(ctx context.Context, q DB, userID uuid.UUID) error
}

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cartRepository struct {
	db DB
}

func NewCartRepository(db DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.user_id, c.quantity, c.added_at,
		       p.id, p.title, p.product_code, p.base_price, p.stock_count, p.preorder_count,
		       p.total_sold, p.markup_percent, p.discount, p.weight, p.created_at, p.updated_at
		FROM preorder_cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pre-order cart for user %s: %w", userID, err)
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
			return nil, fmt.Errorf("repository: failed to scan pre-order cart line: %w", err)
		}
		l.Product = p
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating pre-order cart lines: %w", err)
	}
	return lines, nil
}

func (r *cartRepository) GetByProduct(ctx context.Context, userID uuid.UUID, productID int64) (*Line, error) {
	var l Line
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, quantity, added_at FROM preorder_cart_items
		WHERE user_id = $1 AND product_id = $2`, userID, productID).
		Scan(&l.ID, &l.UserID, &l.Quantity, &l.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to select pre-order cart line: %w", err)
	}
	l.Product.ID = productID
	return &l, nil
}

func (r *cartRepository) Add(ctx context.Context, userID uuid.UUID, productID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO preorder_cart_items (user_id, product_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = preorder_cart_items.quantity + 1`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to add product %d to pre-order cart: %w", productID, err)
	}
	return nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, lineID int64, quantity int) error {
	if quantity < 1 {
		tag, err := r.db.Exec(ctx, `DELETE FROM preorder_cart_items WHERE id = $1`, lineID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete pre-order cart line %d: %w", lineID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrLineNotFound
		}
		return nil
	}

	tag, err := r.db.Exec(ctx, `UPDATE preorder_cart_items SET quantity = $2 WHERE id = $1`, lineID, quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to update pre-order cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM preorder_cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove pre-order cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// Clear runs against the caller's querier so materialization can empty the
// basket inside its transaction.
func (r *cartRepository) Clear(ctx context.Context, q DB, userID uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM preorder_cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("repository: failed to clear pre-order cart for user %s: %w", userID, err)
	}
	return nil
}

type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
	Params(ctx context.Context) (catalog.PricingParams, error)
}

// Basket is the pre-order counterpart of the cart aggregator. It carries no
// stock checks and no reconcile pass: pre-orders are for goods that are not
// on the shelf, so availability never constrains quantities. Promo codes do
// not apply either.
type Basket struct {
	repo     CartRepository
	products ProductStore
}

func NewBasket(repo CartRepository, products ProductStore) *Basket {
	return &Basket{repo: repo, products: products}
}

func (b *Basket) AddProduct(ctx context.Context, userID uuid.UUID, productID int64) error {
	if _, err := b.products.GetByID(ctx, productID); err != nil {
		return err
	}
	return b.repo.Add(ctx, userID, productID)
}

func (b *Basket) Decrement(ctx context.Context, userID uuid.UUID, productID int64) error {
	line, err := b.repo.GetByProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	if line.Quantity <= 1 {
		return cart.ErrMinQuantity
	}
	return b.repo.SetQuantity(ctx, line.ID, line.Quantity-1)
}

func (b *Basket) Remove(ctx context.Context, userID uuid.UUID, lineID int64) error {
	return b.repo.Remove(ctx, userID, lineID)
}

// Compute prices the pre-order basket. The promoCode argument exists only to
// satisfy the checkout wizard's calculator contract and is ignored: only the
// product's own discount applies to pre-orders.
func (b *Basket) Compute(ctx context.Context, userID uuid.UUID, promoCode string) (cart.Totals, error) {
	lines, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		return cart.Totals{}, err
	}

	totals := cart.Totals{Lines: make([]cart.PricedLine, 0, len(lines))}
	if len(lines) == 0 {
		return totals, nil
	}

	params, err := b.products.Params(ctx)
	if err != nil {
		return cart.Totals{}, err
	}

	for _, l := range lines {
		priced := catalog.Price(l.Product, params)
		sum := int64(l.Quantity) * priced.EffectivePrice()

		totals.Lines = append(totals.Lines, cart.PricedLine{
			ID:       l.ID,
			Product:  priced,
			Quantity: l.Quantity,
			Discount: l.Product.Discount,
			Sum:      sum,
		})
		totals.TotalPrice += sum
		totals.WithoutDiscount += int64(l.Quantity) * priced.FinalPrice
	}
	totals.DiscountSum = totals.WithoutDiscount - totals.TotalPrice

	return totals, nil
}
