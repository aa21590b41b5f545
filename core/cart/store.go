package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/core/catalog"
	"github.com/sajidkabir/storefront/database"
	"github.com/sajidkabir/storefront/random"
	"github.com/sajidkabir/storefront/validate"
)

const tokenLength = 32

// Resolve finds or creates the one cart owned by the given identity. The
// unique constraints on carts.user_id and carts.token are the arbiter:
// creation is insert-if-absent, and a conflict means another caller won
// the race, so the winner's cart is fetched instead. An anonymous identity
// without a token gets a freshly minted one, reported on the returned
// cart for the web layer to persist.
func Resolve(ctx context.Context, db *sqlx.DB, id Identity) (Cart, error) {
	if id.IsAuthenticated() {
		return resolveOwned(ctx, db, id.UserID)
	}
	return resolveAnonymous(ctx, db, id.Token)
}

func resolveOwned(ctx context.Context, db *sqlx.DB, userID string) (Cart, error) {
	crt, err := fetchByOwner(ctx, db, "user_id", userID)
	if err == nil {
		return crt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Cart{}, &StorageError{fmt.Errorf("fetching cart owned by user[%s]: %w", userID, err)}
	}

	const q = `
	INSERT INTO carts (cart_id, user_id, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (user_id) DO NOTHING`

	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, q, validate.GenerateID(), userID, now); err != nil {
		return Cart{}, &StorageError{fmt.Errorf("creating cart for user[%s]: %w", userID, err)}
	}

	crt, err = fetchByOwner(ctx, db, "user_id", userID)
	if err != nil {
		return Cart{}, &StorageError{fmt.Errorf("fetching cart for user[%s] after insert: %w", userID, err)}
	}
	return crt, nil
}

func resolveAnonymous(ctx context.Context, db *sqlx.DB, token string) (Cart, error) {
	if token != "" {
		crt, err := fetchByOwner(ctx, db, "token", token)
		if err == nil {
			return crt, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Cart{}, &StorageError{fmt.Errorf("fetching cart by token: %w", err)}
		}
	} else {
		var err error
		if token, err = random.StringSecure(tokenLength); err != nil {
			return Cart{}, fmt.Errorf("minting cart token: %w", err)
		}
	}

	const q = `
	INSERT INTO carts (cart_id, token, created_at, updated_at)
	VALUES ($1, $2, $3, $3)
	ON CONFLICT (token) DO NOTHING`

	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, q, validate.GenerateID(), token, now); err != nil {
		return Cart{}, &StorageError{fmt.Errorf("creating anonymous cart: %w", err)}
	}

	crt, err := fetchByOwner(ctx, db, "token", token)
	if err != nil {
		return Cart{}, &StorageError{fmt.Errorf("fetching anonymous cart after insert: %w", err)}
	}
	return crt, nil
}

func fetchByOwner(ctx context.Context, db sqlx.ExtContext, column string, owner string) (Cart, error) {
	q := fmt.Sprintf(`
	SELECT cart_id, user_id, token, created_at, updated_at
	FROM carts
	WHERE %s = $1`, column)

	var crt Cart
	if err := sqlx.GetContext(ctx, db, &crt, q, owner); err != nil {
		return Cart{}, err
	}

	lines, err := FetchLines(ctx, db, crt.ID)
	if err != nil {
		return Cart{}, err
	}
	crt.Lines = lines

	return crt, nil
}

func FetchLines(ctx context.Context, db sqlx.ExtContext, cartID string) ([]Line, error) {
	const q = `
	SELECT line_id, cart_id, product_id, variant, variant_key, quantity, created_at, updated_at
	FROM cart_lines
	WHERE cart_id = $1
	ORDER BY created_at`

	lines := []Line{}
	if err := sqlx.SelectContext(ctx, db, &lines, q, cartID); err != nil {
		return nil, fmt.Errorf("fetching lines of cart[%s]: %w", cartID, err)
	}

	return lines, nil
}

// AddLine attaches a product to the cart. An addition matching an existing
// line's product and normalized variant selection increments that line
// instead of duplicating it: the upsert on the (cart, product, variant key)
// constraint makes find-or-increment one atomic statement, so concurrent
// additions cannot race into two lines or lose an increment.
func AddLine(ctx context.Context, db *sqlx.DB, crt Cart, ln LineNew) (Line, error) {
	if ln.Quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	if _, err := catalog.Fetch(ctx, db, ln.ProductID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Line{}, ErrProductNotFound
		}
		return Line{}, &StorageError{err}
	}

	attrs, err := catalog.Attributes(ctx, db, ln.ProductID)
	if err != nil {
		return Line{}, &StorageError{err}
	}

	variant := Normalize(ln.Variant, catalog.Names(attrs))

	const q = `
	INSERT INTO cart_lines (line_id, cart_id, product_id, variant, variant_key, quantity, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (cart_id, product_id, variant_key)
	DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	RETURNING line_id, cart_id, product_id, variant, variant_key, quantity, created_at, updated_at`

	var out Line
	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		err := sqlx.GetContext(ctx, tx, &out, q,
			validate.GenerateID(), crt.ID, ln.ProductID, variant, variant.Key(), ln.Quantity, now)
		if err != nil {
			return fmt.Errorf("upserting line for product[%s]: %w", ln.ProductID, err)
		}

		if err := touch(ctx, tx, crt.ID, now); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return Line{}, &StorageError{err}
	}

	return out, nil
}

// SetLineQuantity replaces a line's quantity.
func SetLineQuantity(ctx context.Context, db *sqlx.DB, cartID string, lineID string, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	const q = `
	UPDATE cart_lines
	SET quantity = $3, updated_at = $4
	WHERE cart_id = $1 AND line_id = $2
	RETURNING line_id, cart_id, product_id, variant, variant_key, quantity, created_at, updated_at`

	var out Line
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		if err := sqlx.GetContext(ctx, tx, &out, q, cartID, lineID, quantity, now); err != nil {
			return fmt.Errorf("updating line[%s]: %w", lineID, err)
		}

		return touch(ctx, tx, cartID, now)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Line{}, sql.ErrNoRows
		}
		return Line{}, &StorageError{err}
	}

	return out, nil
}

func RemoveLine(ctx context.Context, db *sqlx.DB, cartID string, lineID string) error {
	const q = `DELETE FROM cart_lines WHERE cart_id = $1 AND line_id = $2`

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if _, err := tx.ExecContext(ctx, q, cartID, lineID); err != nil {
			return fmt.Errorf("deleting line[%s]: %w", lineID, err)
		}
		return touch(ctx, tx, cartID, time.Now().UTC())
	})
	if err != nil {
		return &StorageError{err}
	}

	return nil
}

// Clear removes every line of the cart. It runs on the caller's executor
// so order fulfillment can flush the cart inside its own transaction.
func Clear(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `DELETE FROM cart_lines WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID); err != nil {
		return fmt.Errorf("clearing cart[%s]: %w", cartID, err)
	}

	return touch(ctx, db, cartID, time.Now().UTC())
}

// Merge folds the anonymous cart behind token into the user's cart:
// quantities add line by line through the same conflict-target upsert
// AddLine uses, then the anonymous cart is deleted. A missing anonymous
// cart is a no-op.
func Merge(ctx context.Context, db *sqlx.DB, token string, userID string) error {
	if token == "" {
		return nil
	}

	anon, err := fetchByOwner(ctx, db, "token", token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return &StorageError{fmt.Errorf("fetching anonymous cart for merge: %w", err)}
	}

	owned, err := resolveOwned(ctx, db, userID)
	if err != nil {
		return err
	}

	const upsert = `
	INSERT INTO cart_lines (line_id, cart_id, product_id, variant, variant_key, quantity, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (cart_id, product_id, variant_key)
	DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		// Re-read inside the transaction: a line added after the lookup
		// above must fold in rather than vanish with the delete below.
		lines, err := FetchLines(ctx, tx, anon.ID)
		if err != nil {
			return err
		}

		for _, ln := range lines {
			_, err := tx.ExecContext(ctx, upsert,
				validate.GenerateID(), owned.ID, ln.ProductID, ln.Variant, ln.VariantKey, ln.Quantity, now)
			if err != nil {
				return fmt.Errorf("merging line for product[%s]: %w", ln.ProductID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE cart_id = $1`, anon.ID); err != nil {
			return fmt.Errorf("deleting merged anonymous cart[%s]: %w", anon.ID, err)
		}

		return touch(ctx, tx, owned.ID, now)
	})
	if err != nil {
		return &StorageError{err}
	}

	return nil
}

func touch(ctx context.Context, db sqlx.ExtContext, cartID string, now time.Time) error {
	if _, err := db.ExecContext(ctx, `UPDATE carts SET updated_at = $2 WHERE cart_id = $1`, cartID, now); err != nil {
		return fmt.Errorf("touching cart[%s]: %w", cartID, err)
	}
	return nil
}
