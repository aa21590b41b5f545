package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/shopspring/decimal"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := Filter{
			Query:    r.URL.Query().Get("q"),
			Category: r.URL.Query().Get("category"),
			Sort:     r.URL.Query().Get("sort"),
		}

		if s := r.URL.Query().Get("page"); s != "" {
			p, err := strconv.Atoi(s)
			if err != nil || p < 1 {
				return weberr.BadRequest(errors.New("page is not a positive number"))
			}
			f.Page = p
		}
		if s := r.URL.Query().Get("page_size"); s != "" {
			p, err := strconv.Atoi(s)
			if err != nil || p < 1 {
				return weberr.BadRequest(errors.New("page_size is not a positive number"))
			}
			f.PageSize = p
		}

		if s := r.URL.Query().Get("min_price"); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return weberr.BadRequest(errors.New("min_price is not a valid amount"))
			}
			f.MinPrice = &d
		}
		if s := r.URL.Query().Get("max_price"); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return weberr.BadRequest(errors.New("max_price is not a valid amount"))
			}
			f.MaxPrice = &d
		}

		ps, err := List(ctx, db, f)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

func HandleListCategories(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := ListCategories(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		slug := web.Param(r, "slug")

		p, err := FetchBySlug(ctx, db, slug)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		attrs, err := Attributes(ctx, db, p.ID)
		if err != nil {
			return err
		}

		out := struct {
			Product
			Variants []Attribute `json:"variants"`
		}{p, attrs}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}
