package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/core/review"
	"github.com/sajidkabir/storefront/database"
	"github.com/sajidkabir/storefront/database/databasetest"
	"github.com/sajidkabir/storefront/validate"
)

func seedUser(t *testing.T, db *sqlx.DB) string {
	t.Helper()

	id := validate.GenerateID()
	now := time.Now().UTC()

	const q = `
	INSERT INTO users (user_id, name, email, password_hash, active, created_at, updated_at)
	VALUES ($1, $2, $3, 'x', TRUE, $4, $4)`

	if _, err := db.Exec(q, id, "Test User", id+"@example.com", now); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return id
}

func seedProduct(t *testing.T, db *sqlx.DB) string {
	t.Helper()

	id := validate.GenerateID()
	now := time.Now().UTC()

	const q = `
	INSERT INTO products (product_id, name, slug, sku, price, stock, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, '25.00', 100, TRUE, $5, $5)`

	if _, err := db.Exec(q, id, "Test Product", "product-"+id, "SKU-"+id, now); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	return id
}

func TestCreate(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	productID := seedProduct(t, db)
	now := time.Now().UTC()

	rev := func(userID string, rating int) review.Review {
		return review.Review{
			ID:        validate.GenerateID(),
			ProductID: productID,
			UserID:    userID,
			Rating:    rating,
			Title:     "Solid",
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	alice := seedUser(t, db)
	bob := seedUser(t, db)

	if err := review.Create(ctx, db, rev(alice, 5)); err != nil {
		t.Fatalf("creating review: %v", err)
	}
	if err := review.Create(ctx, db, rev(bob, 4)); err != nil {
		t.Fatalf("creating review: %v", err)
	}

	// A second review from the same user hits the unique constraint.
	err := review.Create(ctx, db, rev(alice, 1))
	if err == nil {
		t.Fatal("expected an error for a duplicate review")
	}
	if !database.IsUniqueViolation(err) {
		t.Errorf("got error %v, want a unique violation", err)
	}

	revs, err := review.FetchByProduct(ctx, db, productID)
	if err != nil {
		t.Fatalf("fetching reviews: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d reviews, want 2", len(revs))
	}

	// The transaction refreshed the product aggregates alongside.
	var agg struct {
		Rating  string `db:"rating"`
		Reviews int    `db:"reviews"`
	}
	if err := db.Get(&agg, `SELECT rating, reviews FROM products WHERE product_id = $1`, productID); err != nil {
		t.Fatalf("fetching product aggregates: %v", err)
	}
	if agg.Reviews != 2 {
		t.Errorf("got review count %d, want 2", agg.Reviews)
	}
	if agg.Rating != "4.50" {
		t.Errorf("got rating %s, want 4.50", agg.Rating)
	}
}
