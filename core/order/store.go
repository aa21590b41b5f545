package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders (order_id, user_id, provider, tran_id, status, subtotal, tax, shipping, total, created_at, updated_at)
	VALUES (:order_id, :user_id, :provider, :tran_id, :status, :subtotal, :tax, :shipping, :total, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func CreateLine(ctx context.Context, db sqlx.ExtContext, ln Line) error {
	const q = `
	INSERT INTO order_lines (order_id, product_id, variant, quantity, unit_price, created_at)
	VALUES (:order_id, :product_id, :variant, :quantity, :unit_price, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ln); err != nil {
		return fmt.Errorf("inserting order line: %w", err)
	}

	return nil
}

func FetchByTranID(ctx context.Context, db sqlx.ExtContext, tranID string) (Order, error) {
	const q = `
	SELECT order_id, user_id, provider, tran_id, status, subtotal, tax, shipping, total, created_at, updated_at
	FROM orders
	WHERE tran_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, tranID); err != nil {
		return Order{}, fmt.Errorf("fetching order bound to payment[%s]: %w", tranID, err)
	}

	return ord, nil
}

func FetchLines(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Line, error) {
	const q = `
	SELECT order_id, product_id, variant, quantity, unit_price, created_at
	FROM order_lines
	WHERE order_id = $1`

	lines := []Line{}
	if err := sqlx.SelectContext(ctx, db, &lines, q, orderID); err != nil {
		return nil, fmt.Errorf("fetching lines of order[%s]: %w", orderID, err)
	}

	return lines, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Order, error) {
	const q = `
	SELECT order_id, user_id, provider, tran_id, status, subtotal, tax, shipping, total, created_at, updated_at
	FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, userID); err != nil {
		return nil, fmt.Errorf("fetching orders of user[%s]: %w", userID, err)
	}

	return ords, nil
}

// UpdateStatus moves the order from one status to another and reports
// whether the transition happened. Guarding on the current status makes
// re-sent gateway notifications no-ops instead of double fulfillments.
func UpdateStatus(ctx context.Context, db sqlx.ExtContext, orderID string, from Status, to Status) (bool, error) {
	const q = `UPDATE orders SET status = $3, updated_at = $4 WHERE order_id = $1 AND status = $2`

	res, err := db.ExecContext(ctx, q, orderID, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("updating status of order[%s]: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking status update of order[%s]: %w", orderID, err)
	}

	return n > 0, nil
}

// decrementStock reduces product stock by the quantity sold, clamped at
// zero; stock is advisory and oversells are not treated as failures.
func decrementStock(ctx context.Context, db sqlx.ExtContext, productID string, quantity int) error {
	const q = `
	UPDATE products
	SET stock = GREATEST(stock - $2, 0), updated_at = $3
	WHERE product_id = $1`

	if _, err := db.ExecContext(ctx, q, productID, quantity, time.Now().UTC()); err != nil {
		return fmt.Errorf("decrementing stock of product[%s]: %w", productID, err)
	}

	return nil
}
