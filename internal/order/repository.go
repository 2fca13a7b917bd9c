package order

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
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrAlreadyCanceled         = errors.New("order is already canceled")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// MessageFunc composes the notification for a state change, given the order
// as it stood inside the transaction. Returning a zero-ID message is not
// allowed; return via notify constructors only.
type MessageFunc func(o *Order) notify.Message

type Repository interface {
	// Create materializes the order: per-line stock check and decrement
	// under row locks, order+item snapshots, sale recording, cart cleanup
	// and the outbox insert — all in one transaction.
	Create(ctx context.Context, o *Order, msg notify.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	// Cancel guards against terminal statuses and credits each item's
	// quantity back to stock.
	Cancel(ctx context.Context, id uuid.UUID, compose MessageFunc) (*Order, error)
	// ApplyStatusUpdate changes status and/or payment status atomically and
	// enqueues exactly one notification (status change wins when both
	// changed).
	ApplyStatusUpdate(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *PaymentStatus,
		composeStatus, composePayment MessageFunc) (*Order, error)
}

type postgresRepository struct {
	db     *pgxpool.Pool
	outbox *notify.Outbox
}

func NewRepository(db *pgxpool.Pool, outbox *notify.Outbox) Repository {
	return &postgresRepository{db: db, outbox: outbox}
}

const orderColumns = `id, user_id, status, payment_status, type_delivery, type_payment,
		total_price, without_discount, discount_sum, shipping_address, email, phone_number,
		comment, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TypeDelivery, &o.TypePayment,
		&o.TotalPrice, &o.WithoutDiscount, &o.DiscountSum, &o.ShippingAddress, &o.Email,
		&o.PhoneNumber, &o.Comment, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepository) Create(ctx context.Context, o *Order, msg notify.Message) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ledger := catalog.NewRepository(tx)

	// Serialize on the stock counters first; any shortfall aborts the whole
	// transaction before the order row exists. Rows are locked in ascending
	// product order so concurrent checkouts sharing products cannot deadlock.
	SortItems(o.Items)
	for _, item := range o.Items {
		if _, err := ledger.LockStock(ctx, item.ProductID); err != nil {
			return err
		}
		if err := ledger.DecreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := ledger.RecordSale(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, payment_status, type_delivery, type_payment,
			total_price, without_discount, discount_sum, shipping_address, email, phone_number,
			comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.UserID, o.Status.String(), o.PaymentStatus.String(), string(o.TypeDelivery),
		string(o.TypePayment), o.TotalPrice, o.WithoutDiscount, o.DiscountSum,
		o.ShippingAddress, o.Email, o.PhoneNumber, o.Comment, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price, sum, discount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.Sum, item.Discount)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", o.UserID, err)
	}

	if err = r.outbox.Insert(ctx, tx, msg); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	o.Items, err = r.queryItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepository) queryItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.title, i.quantity, i.price, i.sum, i.discount
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Quantity, &it.Price, &it.Sum, &it.Discount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for order %s: %w", orderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for order %s: %w", orderID, err)
	}
	return items, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.TypeDelivery, &o.TypePayment,
			&o.TotalPrice, &o.WithoutDiscount, &o.DiscountSum, &o.ShippingAddress, &o.Email,
			&o.PhoneNumber, &o.Comment, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %s: %w", userID, err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.title, i.quantity, i.price, i.sum, i.discount
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it Item
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Quantity, &it.Price, &it.Sum, &it.Discount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user %s: %w", userID, err)
		}
		if o, ok := ordersMap[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for user %s: %w", userID, err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) Cancel(ctx context.Context, id uuid.UUID, compose MessageFunc) (_ *Order, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	// Double cancel double-credits stock, so terminal states are rejected.
	if o.Status == StatusCanceled {
		return nil, ErrAlreadyCanceled
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, StatusCanceled)
	}

	itemRows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for order %s: %w", id, err)
	}
	type credit struct {
		productID int64
		qty       int
	}
	var credits []credit
	for itemRows.Next() {
		var c credit
		if err := itemRows.Scan(&c.productID, &c.qty); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("repository: failed to scan item for order %s: %w", id, err)
		}
		credits = append(credits, c)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for order %s: %w", id, err)
	}

	ledger := catalog.NewRepository(tx)
	for _, c := range credits {
		if err := ledger.IncreaseStock(ctx, c.productID, c.qty); err != nil {
			return nil, err
		}
	}

	o.Status = StatusCanceled
	o.UpdatedAt = time.Now().UTC()
	if _, err = tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, o.Status.String(), o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repository: failed to update order %s status: %w", id, err)
	}

	if err = r.outbox.Insert(ctx, tx, compose(o)); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return o, nil
}

func (r *postgresRepository) ApplyStatusUpdate(ctx context.Context, id uuid.UUID, newStatus *Status, newPayment *PaymentStatus,
	composeStatus, composePayment MessageFunc) (_ *Order, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	statusChanged := newStatus != nil && *newStatus != o.Status
	paymentChanged := newPayment != nil && *newPayment != o.PaymentStatus
	if !statusChanged && !paymentChanged {
		log.Info().Stringer("order_id", id).Msg("repository: status update is a no-op")
		return o, tx.Commit(ctx)
	}

	if statusChanged {
		if !CanTransition(o.Status, *newStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, *newStatus)
		}
		o.Status = *newStatus
	}
	if paymentChanged {
		if !CanTransitionPayment(o.PaymentStatus, *newPayment) {
			return nil, fmt.Errorf("%w: payment %s -> %s", ErrInvalidStatusTransition, o.PaymentStatus, *newPayment)
		}
		o.PaymentStatus = *newPayment
	}
	o.UpdatedAt = time.Now().UTC()

	if _, err = tx.Exec(ctx, `UPDATE orders SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
		id, o.Status.String(), o.PaymentStatus.String(), o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repository: failed to update order %s: %w", id, err)
	}

	// Exactly one email per update; a status change outranks a payment one.
	var msg notify.Message
	if statusChanged {
		msg = composeStatus(o)
	} else {
		msg = composePayment(o)
	}
	if err = r.outbox.Insert(ctx, tx, msg); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit transaction: %w", err)
	}
	return o, nil
}
