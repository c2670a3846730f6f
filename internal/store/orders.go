package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/palengke-dev/farmgate-api/internal/ordernum"
)

var (
	// ErrDuplicateOrderNumber surfaces the orders.order_number unique
	// index; checkout re-allocates and retries on it.
	ErrDuplicateOrderNumber = errors.New("store: order number already used")
	// ErrInsufficientStock means a line could not reserve its quantity.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Order is a placed order with its lines, as persisted.
type Order struct {
	ID          string
	OrderNumber string
	BuyerID     string
	ItemsTotal  float64
	PlatformFee float64
	ShippingFee float64
	VATAmount   float64
	FinalPrice  float64
	Currency    string
	PaymentRef  string
	Items       []OrderItem
}

// OrderItem is one priced line of a placed order.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

// LatestOrderNumber returns the highest sequential-format order number
// created in [dayStart, dayEnd), or ordernum.ErrNoOrders when the day has
// none. Timestamp-fallback numbers are excluded: they carry no sequence,
// and counting them would stall the allocator at the same proposal for the
// rest of the day. Within one day the prefix and date are constant, so
// ordering by order_number is ordering by sequence.
func (s *Store) LatestOrderNumber(ctx context.Context, dayStart, dayEnd time.Time) (string, error) {
	const q = `
		SELECT order_number
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		  AND order_number ~ '^[A-Z]+-[0-9]{8}-[0-9]{4}$'
		ORDER BY order_number DESC
		LIMIT 1`
	var number string
	err := s.Pool.QueryRow(ctx, q, dayStart, dayEnd).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ordernum.ErrNoOrders
	}
	if err != nil {
		return "", fmt.Errorf("store: latest order number: %w", err)
	}
	return number, nil
}

// OrderNumberInUse reports whether an order already claimed the number.
func (s *Store) OrderNumberInUse(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: order number check: %w", err)
	}
	return exists, nil
}

// InsertOrder persists the order, its lines and the stock reservation in
// one transaction. Stock is decremented conditionally; a line whose
// quantity exceeds the remaining stock aborts with ErrInsufficientStock.
func (s *Store) InsertOrder(ctx context.Context, o Order) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, buyer_id, items_total,
			platform_fee, shipping_fee, vat_amount, final_price,
			currency, payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrderNumber, o.BuyerID, o.ItemsTotal,
		o.PlatformFee, o.ShippingFee, o.VATAmount, o.FinalPrice,
		o.Currency, o.PaymentRef)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("store: insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal); err != nil {
			return fmt.Errorf("store: insert order item: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $1, sold_count = sold_count + $1
			WHERE id = $2 AND stock >= $1`,
			it.Quantity, it.ProductID)
		if err != nil {
			return fmt.Errorf("store: reserve stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %s", ErrInsufficientStock, it.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("store: commit order: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
