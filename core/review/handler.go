package review

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/sajidkabir/storefront/core/catalog"
	"github.com/sajidkabir/storefront/core/claims"
	"github.com/sajidkabir/storefront/database"
	"github.com/sajidkabir/storefront/validate"
)

func HandleListByProduct(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		revs, err := FetchByProduct(ctx, db, productID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, revs, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		var rn ReviewNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := catalog.Fetch(ctx, db, productID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		rev := Review{
			ID:        validate.GenerateID(),
			ProductID: productID,
			UserID:    clm.UserID,
			Rating:    rn.Rating,
			Title:     rn.Title,
			Comment:   rn.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, rev); err != nil {
			if database.IsUniqueViolation(err) {
				return weberr.Conflict(errors.New("product already reviewed"))
			}
			return err
		}

		return web.Respond(ctx, w, rev, http.StatusCreated)
	}
}
