package wishlist

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Toggle adds the product to the user's wishlist, or removes it when it
// is already there. Returns true when the product ends up on the list.
func Toggle(ctx context.Context, db sqlx.ExtContext, userID string, productID string) (bool, error) {
	const ins = `
	INSERT INTO wishlist_items (user_id, product_id, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id, product_id) DO NOTHING`

	res, err := db.ExecContext(ctx, ins, userID, productID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("adding product[%s] to wishlist: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking wishlist insert: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	const del = `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`
	if _, err := db.ExecContext(ctx, del, userID, productID); err != nil {
		return false, fmt.Errorf("removing product[%s] from wishlist: %w", productID, err)
	}

	return false, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Item, error) {
	const q = `
	SELECT user_id, product_id, created_at
	FROM wishlist_items
	WHERE user_id = $1
	ORDER BY created_at DESC`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, userID); err != nil {
		return nil, fmt.Errorf("fetching wishlist of user[%s]: %w", userID, err)
	}

	return items, nil
}
