package preorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/notify"
	"github.com/Stavickiy/internet-store/internal/order"
)

var (
	ErrPreOrderNotFound        = errors.New("pre-order not found")
	ErrAlreadyCanceled         = errors.New("pre-order is already canceled")
	ErrInvalidStatusTransition = errors.New("invalid pre-order status transition")
)

type MessageFunc func(p *PreOrder) notify.Message

type Repository interface {
	// Create materializes the pre-order. No stock is checked or decremented:
	// each item's quantity is added to the product's preorder counter and
	// counted as a sale, the pre-order basket is cleared and the outbox row
	// inserted, all in one transaction.
	Create(ctx context.Context, p *PreOrder, msg notify.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*PreOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]PreOrder, error)
	// Cancel guards against terminal statuses and unwinds each item's
	// quantity from the preorder counter.
	Cancel(ctx context.Context, id uuid.UUID, compose MessageFunc) (*PreOrder, error)
	ApplyStatusUpdate(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *order.PaymentStatus,
		composeStatus, composePayment MessageFunc) (*PreOrder, error)
}

type postgresRepository struct {
	db     *pgxpool.Pool
	cart   CartRepository
	outbox *notify.Outbox
}

func NewRepository(db *pgxpool.Pool, cart CartRepository, outbox *notify.Outbox) Repository {
	return &postgresRepository{db: db, cart: cart, outbox: outbox}
}

const preorderColumns = `id, user_id, status, payment_status, type_delivery, type_payment,
		total_price, without_discount, discount_sum, shipping_address, email, phone_number,
		comment, created_at, updated_at`

func scanPreOrder(row pgx.Row) (*PreOrder, error) {
	var p PreOrder
	err := row.Scan(
		&p.ID, &p.UserID, &p.Status, &p.PaymentStatus, &p.TypeDelivery, &p.TypePayment,
		&p.TotalPrice, &p.WithoutDiscount, &p.DiscountSum, &p.ShippingAddress, &p.Email,
		&p.PhoneNumber, &p.Comment, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreOrderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *PreOrder, msg notify.Message) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ledger := catalog.NewRepository(tx)
	// Product rows are updated in ascending product order, matching the
	// order materializer's lock sequence.
	order.SortItems(p.Items)
	for _, item := range p.Items {
		if err := ledger.IncreasePreorder(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := ledger.RecordSale(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO preorders (id, user_id, status, payment_status, type_delivery, type_payment,
			total_price, without_discount, discount_sum, shipping_address, email, phone_number,
			comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.UserID, p.Status.String(), p.PaymentStatus.String(), string(p.TypeDelivery),
		string(p.TypePayment), p.TotalPrice, p.WithoutDiscount, p.DiscountSum,
		p.ShippingAddress, p.Email, p.PhoneNumber, p.Comment, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert pre-order: %w", err)
	}

	for i := range p.Items {
		item := &p.Items[i]
		item.OrderID = p.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO preorder_items (id, order_id, product_id, quantity, price, sum, discount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.Sum, item.Discount)
		if err != nil {
			return fmt.Errorf("repository: failed to insert item for pre-order %s: %w", p.ID, err)
		}
	}

	if err = r.cart.Clear(ctx, tx, p.UserID); err != nil {
		return err
	}

	if err = r.outbox.Insert(ctx, tx, msg); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*PreOrder, error) {
	p, err := scanPreOrder(r.db.QueryRow(ctx, `SELECT `+preorderColumns+` FROM preorders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to select pre-order %s: %w", id, err)
	}

	p.Items, err = r.queryItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepository) queryItems(ctx context.Context, preorderID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.title, i.quantity, i.price, i.sum, i.discount
		FROM preorder_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1`, preorderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for pre-order %s: %w", preorderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Quantity, &it.Price, &it.Sum, &it.Discount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for pre-order %s: %w", preorderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for pre-order %s: %w", preorderID, err)
	}
	return items, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]PreOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+preorderColumns+` FROM preorders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pre-orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	preordersMap := make(map[uuid.UUID]*PreOrder)
	var ids []uuid.UUID
	for rows.Next() {
		var p PreOrder
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Status, &p.PaymentStatus, &p.TypeDelivery, &p.TypePayment,
			&p.TotalPrice, &p.WithoutDiscount, &p.DiscountSum, &p.ShippingAddress, &p.Email,
			&p.PhoneNumber, &p.Comment, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan pre-order for user %s: %w", userID, err)
		}
		p.Items = make([]Item, 0)
		preordersMap[p.ID] = &p
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating pre-orders for user %s: %w", userID, err)
	}

	if len(ids) == 0 {
		return []PreOrder{}, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.title, i.quantity, i.price, i.sum, i.discount
		FROM preorder_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pre-order items for user %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it Item
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Quantity, &it.Price, &it.Sum, &it.Discount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan pre-order item for user %s: %w", userID, err)
		}
		if p, ok := preordersMap[it.OrderID]; ok {
			p.Items = append(p.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating pre-order items for user %s: %w", userID, err)
	}

	result := make([]PreOrder, 0, len(ids))
	for _, id := range ids {
		result = append(result, *preordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) Cancel(ctx context.Context, id uuid.UUID, compose MessageFunc) (_ *PreOrder, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPreOrder(tx.QueryRow(ctx, `SELECT `+preorderColumns+` FROM preorders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to lock pre-order %s: %w", id, err)
	}

	if p.Status == order.StatusCanceled {
		return nil, ErrAlreadyCanceled
	}
	if p.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, order.StatusCanceled)
	}

	itemRows, err := tx.Query(ctx, `SELECT product_id, quantity FROM preorder_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for pre-order %s: %w", id, err)
	}
	type debit struct {
		productID int64
		qty       int
	}
	var debits []debit
	for itemRows.Next() {
		var d debit
		if err := itemRows.Scan(&d.productID, &d.qty); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("repository: failed to scan item for pre-order %s: %w", id, err)
		}
		debits = append(debits, d)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for pre-order %s: %w", id, err)
	}

	// Cancellation never touches stock_count: nothing was ever taken off the
	// shelf. Only the preorder counter unwinds, clamped at zero.
	ledger := catalog.NewRepository(tx)
	for _, d := range debits {
		if err := ledger.DecreasePreorder(ctx, d.productID, d.qty); err != nil {
			return nil, err
		}
	}

	p.Status = order.StatusCanceled
	p.UpdatedAt = time.Now().UTC()
	if _, err = tx.Exec(ctx, `UPDATE preorders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, p.Status.String(), p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repository: failed to update pre-order %s status: %w", id, err)
	}

	if err = r.outbox.Insert(ctx, tx, compose(p)); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) ApplyStatusUpdate(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *order.PaymentStatus,
	composeStatus, composePayment MessageFunc) (_ *PreOrder, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanPreOrder(tx.QueryRow(ctx, `SELECT `+preorderColumns+` FROM preorders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, ErrPreOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to lock pre-order %s: %w", id, err)
	}

	statusChanged := newStatus != nil && *newStatus != p.Status
	paymentChanged := newPayment != nil && *newPayment != p.PaymentStatus
	if !statusChanged && !paymentChanged {
		log.Info().Stringer("preorder_id", id).Msg("repository: status update is a no-op")
		return p, tx.Commit(ctx)
	}

	if statusChanged {
		if !CanTransition(p.Status, *newStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, p.Status, *newStatus)
		}
		p.Status = *newStatus
	}
	if paymentChanged {
		if !order.CanTransitionPayment(p.PaymentStatus, *newPayment) {
			return nil, fmt.Errorf("%w: payment %s -> %s", ErrInvalidStatusTransition, p.PaymentStatus, *newPayment)
		}
		p.PaymentStatus = *newPayment
	}
	p.UpdatedAt = time.Now().UTC()

	if _, err = tx.Exec(ctx, `UPDATE preorders SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
		id, p.Status.String(), p.PaymentStatus.String(), p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repository: failed to update pre-order %s: %w", id, err)
	}

	var msg notify.Message
	if statusChanged {
		msg = composeStatus(p)
	} else {
		msg = composePayment(p)
	}
	if err = r.outbox.Insert(ctx, tx, msg); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return p, nil
}
