package wishlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/core/wishlist"
	"github.com/sajidkabir/storefront/database/databasetest"
	"github.com/sajidkabir/storefront/validate"
)

func seed(t *testing.T, db *sqlx.DB) (userID, productID string) {
	t.Helper()

	userID = validate.GenerateID()
	productID = validate.GenerateID()
	now := time.Now().UTC()

	const usr = `
	INSERT INTO users (user_id, name, email, password_hash, active, created_at, updated_at)
	VALUES ($1, $2, $3, 'x', TRUE, $4, $4)`
	if _, err := db.Exec(usr, userID, "Test User", userID+"@example.com", now); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	const prd = `
	INSERT INTO products (product_id, name, slug, sku, price, stock, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, '25.00', 100, TRUE, $5, $5)`
	if _, err := db.Exec(prd, productID, "Test Product", "product-"+productID, "SKU-"+productID, now); err != nil {
		t.Fatalf("seeding product: %v", err)
	}

	return userID, productID
}

func TestToggle(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	userID, productID := seed(t, db)

	added, err := wishlist.Toggle(ctx, db, userID, productID)
	if err != nil {
		t.Fatalf("toggling: %v", err)
	}
	if !added {
		t.Error("first toggle should add the product")
	}

	items, err := wishlist.FetchByUser(ctx, db, userID)
	if err != nil {
		t.Fatalf("fetching wishlist: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	added, err = wishlist.Toggle(ctx, db, userID, productID)
	if err != nil {
		t.Fatalf("toggling again: %v", err)
	}
	if added {
		t.Error("second toggle should remove the product")
	}

	items, err = wishlist.FetchByUser(ctx, db, userID)
	if err != nil {
		t.Fatalf("fetching wishlist: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items after removal, want 0", len(items))
	}
}
