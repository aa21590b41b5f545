package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Fetch returns an active product by id; inactive products are invisible.
func Fetch(ctx context.Context, db sqlx.ExtContext, productID string) (Product, error) {
	const q = `
	SELECT product_id, category_id, name, slug, sku, description, price,
	       sale_price, stock, is_active, rating, reviews, created_at, updated_at
	FROM products
	WHERE product_id = $1 AND is_active = TRUE`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("fetching product[%s]: %w", productID, err)
	}

	return p, nil
}

func FetchBySlug(ctx context.Context, db sqlx.ExtContext, slug string) (Product, error) {
	const q = `
	SELECT product_id, category_id, name, slug, sku, description, price,
	       sale_price, stock, is_active, rating, reviews, created_at, updated_at
	FROM products
	WHERE slug = $1 AND is_active = TRUE`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("fetching product by slug[%s]: %w", slug, err)
	}

	return p, nil
}

// List returns one page of active products matching the filter. Sort
// accepts price_low, price_high, newest and rating; anything else keeps
// the default name ordering.
func List(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Product, error) {
	q := `
	SELECT product_id, category_id, name, slug, sku, description, price,
	       sale_price, stock, is_active, rating, reviews, created_at, updated_at
	FROM products
	WHERE is_active = TRUE`

	args := []interface{}{}
	n := 1

	if f.Query != "" {
		q += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d OR sku ILIKE $%d)", n, n, n)
		args = append(args, "%"+f.Query+"%")
		n++
	}
	if f.Category != "" {
		q += fmt.Sprintf(" AND category_id IN (SELECT category_id FROM categories WHERE slug = $%d)", n)
		args = append(args, f.Category)
		n++
	}
	if f.MinPrice != nil {
		q += fmt.Sprintf(" AND price >= $%d", n)
		args = append(args, *f.MinPrice)
		n++
	}
	if f.MaxPrice != nil {
		q += fmt.Sprintf(" AND price <= $%d", n)
		args = append(args, *f.MaxPrice)
		n++
	}

	switch f.Sort {
	case "price_low":
		q += " ORDER BY price ASC"
	case "price_high":
		q += " ORDER BY price DESC"
	case "newest":
		q += " ORDER BY created_at DESC"
	case "rating":
		q += " ORDER BY rating DESC"
	default:
		q += " ORDER BY name ASC"
	}

	limit, offset := f.window()
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
	args = append(args, limit, offset)

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, args...); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	return ps, nil
}

// ListCategories returns every category, parents before children so a
// client can rebuild the tree in one pass.
func ListCategories(ctx context.Context, db sqlx.ExtContext) ([]Category, error) {
	const q = `
	SELECT category_id, name, slug, parent_id, created_at, updated_at
	FROM categories
	ORDER BY parent_id NULLS FIRST, name`

	cats := []Category{}
	if err := sqlx.SelectContext(ctx, db, &cats, q); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	return cats, nil
}

// Attributes returns the recognized variant choices of a product, the
// source of truth for which selection keys the cart accepts.
func Attributes(ctx context.Context, db sqlx.ExtContext, productID string) ([]Attribute, error) {
	const q = `
	SELECT name, value, price_adjustment
	FROM product_variants
	WHERE product_id = $1 AND is_active = TRUE
	ORDER BY name, value`

	attrs := []Attribute{}
	if err := sqlx.SelectContext(ctx, db, &attrs, q, productID); err != nil {
		return nil, fmt.Errorf("fetching variant attributes of product[%s]: %w", productID, err)
	}

	return attrs, nil
}
