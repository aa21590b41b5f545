package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/core/cart"
	"github.com/sajidkabir/storefront/database/databasetest"
	"github.com/sajidkabir/storefront/random"
	"github.com/sajidkabir/storefront/validate"
	"golang.org/x/sync/errgroup"
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

func seedProduct(t *testing.T, db *sqlx.DB, price string, active bool) string {
	t.Helper()

	id := validate.GenerateID()
	now := time.Now().UTC()

	const q = `
	INSERT INTO products (product_id, name, slug, sku, price, stock, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, 100, $6, $7, $7)`

	if _, err := db.Exec(q, id, "Test Product", "product-"+id, "SKU-"+id, price, active, now); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	return id
}

func seedVariant(t *testing.T, db *sqlx.DB, productID, name, value string) {
	t.Helper()

	now := time.Now().UTC()

	const q = `
	INSERT INTO product_variants (variant_id, product_id, name, value, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)`

	if _, err := db.Exec(q, validate.GenerateID(), productID, name, value, now); err != nil {
		t.Fatalf("seeding variant: %v", err)
	}
}

func TestResolve(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	t.Run("authenticated is idempotent", func(t *testing.T) {
		userID := seedUser(t, db)

		first, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}
		second, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart again: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("got two carts (%s, %s) for one user", first.ID, second.ID)
		}
	})

	t.Run("anonymous mints a token once", func(t *testing.T) {
		first, err := cart.Resolve(ctx, db, cart.Anonymous(""))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}
		token, ok := first.NewToken()
		if !ok || token == "" {
			t.Fatal("expected a minted token on the new anonymous cart")
		}

		second, err := cart.Resolve(ctx, db, cart.Anonymous(token))
		if err != nil {
			t.Fatalf("resolving cart by token: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("got two carts (%s, %s) for one token", first.ID, second.ID)
		}
	})

	t.Run("concurrent resolves yield one cart", func(t *testing.T) {
		userID := seedUser(t, db)

		const workers = 16
		ids := make([]string, workers)

		var g errgroup.Group
		for i := 0; i < workers; i++ {
			i := i
			g.Go(func() error {
				crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
				if err != nil {
					return err
				}
				ids[i] = crt.ID
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("resolving concurrently: %v", err)
		}

		for i := 1; i < workers; i++ {
			if ids[i] != ids[0] {
				t.Fatalf("worker %d got cart %s, worker 0 got %s", i, ids[i], ids[0])
			}
		}
	})

	t.Run("concurrent anonymous resolves share one token's cart", func(t *testing.T) {
		token, err := random.StringSecure(32)
		if err != nil {
			t.Fatalf("minting token: %v", err)
		}

		const workers = 16
		ids := make([]string, workers)

		var g errgroup.Group
		for i := 0; i < workers; i++ {
			i := i
			g.Go(func() error {
				crt, err := cart.Resolve(ctx, db, cart.Anonymous(token))
				if err != nil {
					return err
				}
				ids[i] = crt.ID
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("resolving concurrently: %v", err)
		}

		for i := 1; i < workers; i++ {
			if ids[i] != ids[0] {
				t.Fatalf("worker %d got cart %s, worker 0 got %s", i, ids[i], ids[0])
			}
		}
	})
}

func TestAddLine(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	t.Run("same selection increments the line", func(t *testing.T) {
		userID := seedUser(t, db)
		productID := seedProduct(t, db, "25.00", true)
		seedVariant(t, db, productID, "size", "XL")
		seedVariant(t, db, productID, "color", "red")

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		first, err := cart.AddLine(ctx, db, crt, cart.LineNew{
			ProductID: productID,
			Quantity:  2,
			Variant:   map[string]string{"size": "XL", "color": "red"},
		})
		if err != nil {
			t.Fatalf("adding line: %v", err)
		}

		// Same selection, keys supplied in a different order.
		second, err := cart.AddLine(ctx, db, crt, cart.LineNew{
			ProductID: productID,
			Quantity:  3,
			Variant:   map[string]string{"color": "red", "size": "XL"},
		})
		if err != nil {
			t.Fatalf("adding line again: %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("expected one line, got %s and %s", first.ID, second.ID)
		}
		if second.Quantity != 5 {
			t.Errorf("got quantity %d, want 5", second.Quantity)
		}

		lines, err := cart.FetchLines(ctx, db, crt.ID)
		if err != nil {
			t.Fatalf("fetching lines: %v", err)
		}
		if len(lines) != 1 {
			t.Errorf("got %d lines, want 1", len(lines))
		}
	})

	t.Run("different selection makes a new line", func(t *testing.T) {
		userID := seedUser(t, db)
		productID := seedProduct(t, db, "25.00", true)
		seedVariant(t, db, productID, "size", "M")
		seedVariant(t, db, productID, "size", "XL")

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		if _, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 1, Variant: map[string]string{"size": "M"}}); err != nil {
			t.Fatalf("adding line: %v", err)
		}
		if _, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 1, Variant: map[string]string{"size": "XL"}}); err != nil {
			t.Fatalf("adding line: %v", err)
		}

		lines, err := cart.FetchLines(ctx, db, crt.ID)
		if err != nil {
			t.Fatalf("fetching lines: %v", err)
		}
		if len(lines) != 2 {
			t.Errorf("got %d lines, want 2", len(lines))
		}
	})

	t.Run("unrecognized selection keys collapse", func(t *testing.T) {
		userID := seedUser(t, db)
		productID := seedProduct(t, db, "25.00", true)
		seedVariant(t, db, productID, "size", "M")

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		if _, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 1, Variant: map[string]string{"size": "M", "giftwrap": "yes"}}); err != nil {
			t.Fatalf("adding line: %v", err)
		}
		ln, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 1, Variant: map[string]string{"size": "M", "engraving": "hi"}})
		if err != nil {
			t.Fatalf("adding line: %v", err)
		}

		if ln.Quantity != 2 {
			t.Errorf("got quantity %d, want 2: extra keys should not split the line", ln.Quantity)
		}
		if _, ok := ln.Variant["giftwrap"]; ok {
			t.Error("unrecognized key survived normalization")
		}
	})

	t.Run("invalid quantity leaves the cart untouched", func(t *testing.T) {
		userID := seedUser(t, db)
		productID := seedProduct(t, db, "25.00", true)

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		_, err = cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 0})
		if !errors.Is(err, cart.ErrInvalidQuantity) {
			t.Fatalf("got error %v, want ErrInvalidQuantity", err)
		}

		lines, err := cart.FetchLines(ctx, db, crt.ID)
		if err != nil {
			t.Fatalf("fetching lines: %v", err)
		}
		if len(lines) != 0 {
			t.Errorf("got %d lines, want 0", len(lines))
		}
	})

	t.Run("missing and inactive products are rejected", func(t *testing.T) {
		userID := seedUser(t, db)
		inactive := seedProduct(t, db, "25.00", false)

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		_, err = cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: validate.GenerateID(), Quantity: 1})
		if !errors.Is(err, cart.ErrProductNotFound) {
			t.Errorf("got error %v, want ErrProductNotFound", err)
		}

		_, err = cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: inactive, Quantity: 1})
		if !errors.Is(err, cart.ErrProductNotFound) {
			t.Errorf("got error %v for inactive product, want ErrProductNotFound", err)
		}
	})

	t.Run("concurrent additions lose nothing", func(t *testing.T) {
		userID := seedUser(t, db)
		productID := seedProduct(t, db, "25.00", true)

		crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving cart: %v", err)
		}

		const workers = 16
		var g errgroup.Group
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				_, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 1})
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("adding concurrently: %v", err)
		}

		lines, err := cart.FetchLines(ctx, db, crt.ID)
		if err != nil {
			t.Fatalf("fetching lines: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("got %d lines, want 1", len(lines))
		}
		if lines[0].Quantity != workers {
			t.Errorf("got quantity %d, want %d", lines[0].Quantity, workers)
		}
	})
}

func TestLineUpdates(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, "25.00", true)
	other := seedProduct(t, db, "10.00", true)

	crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
	if err != nil {
		t.Fatalf("resolving cart: %v", err)
	}

	ln, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: productID, Quantity: 2})
	if err != nil {
		t.Fatalf("adding line: %v", err)
	}
	if _, err := cart.AddLine(ctx, db, crt, cart.LineNew{ProductID: other, Quantity: 1}); err != nil {
		t.Fatalf("adding line: %v", err)
	}

	up, err := cart.SetLineQuantity(ctx, db, crt.ID, ln.ID, 7)
	if err != nil {
		t.Fatalf("setting quantity: %v", err)
	}
	if up.Quantity != 7 {
		t.Errorf("got quantity %d, want 7", up.Quantity)
	}

	if _, err := cart.SetLineQuantity(ctx, db, crt.ID, ln.ID, 0); !errors.Is(err, cart.ErrInvalidQuantity) {
		t.Errorf("got error %v, want ErrInvalidQuantity", err)
	}

	if err := cart.RemoveLine(ctx, db, crt.ID, ln.ID); err != nil {
		t.Fatalf("removing line: %v", err)
	}
	lines, err := cart.FetchLines(ctx, db, crt.ID)
	if err != nil {
		t.Fatalf("fetching lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines after remove, want 1", len(lines))
	}

	if err := cart.Clear(ctx, db, crt.ID); err != nil {
		t.Fatalf("clearing cart: %v", err)
	}
	lines, err = cart.FetchLines(ctx, db, crt.ID)
	if err != nil {
		t.Fatalf("fetching lines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d lines after clear, want 0", len(lines))
	}
}

func TestMerge(t *testing.T) {
	db := databasetest.Setup(t)
	ctx := context.Background()

	t.Run("quantities fold line by line", func(t *testing.T) {
		userID := seedUser(t, db)
		shared := seedProduct(t, db, "25.00", true)
		anonOnly := seedProduct(t, db, "10.00", true)

		anon, err := cart.Resolve(ctx, db, cart.Anonymous(""))
		if err != nil {
			t.Fatalf("resolving anonymous cart: %v", err)
		}
		token, _ := anon.NewToken()

		if _, err := cart.AddLine(ctx, db, anon, cart.LineNew{ProductID: shared, Quantity: 2}); err != nil {
			t.Fatalf("adding line: %v", err)
		}
		if _, err := cart.AddLine(ctx, db, anon, cart.LineNew{ProductID: anonOnly, Quantity: 1}); err != nil {
			t.Fatalf("adding line: %v", err)
		}

		owned, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving owned cart: %v", err)
		}
		if _, err := cart.AddLine(ctx, db, owned, cart.LineNew{ProductID: shared, Quantity: 3}); err != nil {
			t.Fatalf("adding line: %v", err)
		}

		if err := cart.Merge(ctx, db, token, userID); err != nil {
			t.Fatalf("merging carts: %v", err)
		}

		lines, err := cart.FetchLines(ctx, db, owned.ID)
		if err != nil {
			t.Fatalf("fetching lines: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("got %d lines after merge, want 2", len(lines))
		}
		byProduct := map[string]int{}
		for _, ln := range lines {
			byProduct[ln.ProductID] = ln.Quantity
		}
		if byProduct[shared] != 5 {
			t.Errorf("got quantity %d for the shared product, want 5", byProduct[shared])
		}
		if byProduct[anonOnly] != 1 {
			t.Errorf("got quantity %d for the carried product, want 1", byProduct[anonOnly])
		}

		// The anonymous cart is gone: the same token now resolves to a
		// brand new empty cart.
		again, err := cart.Resolve(ctx, db, cart.Anonymous(token))
		if err != nil {
			t.Fatalf("resolving by merged token: %v", err)
		}
		if again.ID == anon.ID {
			t.Error("anonymous cart survived the merge")
		}
		if len(again.Lines) != 0 {
			t.Errorf("got %d lines on the post-merge cart, want 0", len(again.Lines))
		}
	})

	t.Run("folds lines added after the cart was first read", func(t *testing.T) {
		userID := seedUser(t, db)
		early := seedProduct(t, db, "25.00", true)
		late := seedProduct(t, db, "10.00", true)

		anon, err := cart.Resolve(ctx, db, cart.Anonymous(""))
		if err != nil {
			t.Fatalf("resolving anonymous cart: %v", err)
		}
		token, _ := anon.NewToken()

		if _, err := cart.AddLine(ctx, db, anon, cart.LineNew{ProductID: early, Quantity: 1}); err != nil {
			t.Fatalf("adding line: %v", err)
		}

		// The cart value in hand is stale: it predates this addition.
		// Merge must still carry the line over.
		if _, err := cart.AddLine(ctx, db, anon, cart.LineNew{ProductID: late, Quantity: 4}); err != nil {
			t.Fatalf("adding line: %v", err)
		}

		if err := cart.Merge(ctx, db, token, userID); err != nil {
			t.Fatalf("merging carts: %v", err)
		}

		owned, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
		if err != nil {
			t.Fatalf("resolving owned cart: %v", err)
		}
		if len(owned.Lines) != 2 {
			t.Fatalf("got %d lines after merge, want 2", len(owned.Lines))
		}
		byProduct := map[string]int{}
		for _, ln := range owned.Lines {
			byProduct[ln.ProductID] = ln.Quantity
		}
		if byProduct[late] != 4 {
			t.Errorf("got quantity %d for the late line, want 4", byProduct[late])
		}
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		userID := seedUser(t, db)

		token, err := random.StringSecure(32)
		if err != nil {
			t.Fatalf("minting token: %v", err)
		}
		if err := cart.Merge(ctx, db, token, userID); err != nil {
			t.Fatalf("merging with unknown token: %v", err)
		}
		if err := cart.Merge(ctx, db, "", userID); err != nil {
			t.Fatalf("merging with empty token: %v", err)
		}
	})
}
