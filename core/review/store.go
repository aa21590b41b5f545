package review

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/database"
)

// Create inserts the review and refreshes the product's aggregate rating
// in the same transaction. The (product, user) unique constraint keeps it
// to one review per user per product; the caller turns that violation
// into a conflict response.
func Create(ctx context.Context, db *sqlx.DB, rev Review) error {
	const ins = `
	INSERT INTO reviews (review_id, product_id, user_id, rating, title, comment, created_at, updated_at)
	VALUES (:review_id, :product_id, :user_id, :rating, :title, :comment, :created_at, :updated_at)`

	const refresh = `
	UPDATE products SET
		rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1),
		reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
		updated_at = $2
	WHERE product_id = $1`

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if _, err := sqlx.NamedExecContext(ctx, tx, ins, rev); err != nil {
			return fmt.Errorf("inserting review: %w", err)
		}

		if _, err := tx.ExecContext(ctx, refresh, rev.ProductID, rev.UpdatedAt); err != nil {
			return fmt.Errorf("refreshing rating of product[%s]: %w", rev.ProductID, err)
		}

		return nil
	})
}

func FetchByProduct(ctx context.Context, db sqlx.ExtContext, productID string) ([]Review, error) {
	const q = `
	SELECT review_id, product_id, user_id, rating, title, comment, created_at, updated_at
	FROM reviews
	WHERE product_id = $1
	ORDER BY created_at DESC`

	revs := []Review{}
	if err := sqlx.SelectContext(ctx, db, &revs, q, productID); err != nil {
		return nil, fmt.Errorf("fetching reviews of product[%s]: %w", productID, err)
	}

	return revs, nil
}
