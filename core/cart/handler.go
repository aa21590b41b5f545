package cart

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/sajidkabir/storefront/config"
	"github.com/sajidkabir/storefront/core/claims"
	"github.com/sajidkabir/storefront/validate"
)

const sessionTokenKey = "cart_token"

// SessionToken returns the anonymous cart token stored in the caller's
// session, if any.
func SessionToken(ctx context.Context, session *scs.SessionManager) string {
	return session.GetString(ctx, sessionTokenKey)
}

func ClearSessionToken(ctx context.Context, session *scs.SessionManager) {
	session.Remove(ctx, sessionTokenKey)
}

// identityFrom derives the request identity: the logged-in user when
// present, otherwise the session's anonymous token (possibly empty).
func identityFrom(ctx context.Context, session *scs.SessionManager) Identity {
	if clm, err := claims.Get(ctx); err == nil {
		return Authenticated(clm.UserID)
	}
	return Anonymous(SessionToken(ctx, session))
}

// resolve runs the resolver and performs the session side effect it
// reports: a token minted for a new anonymous cart is persisted here, in
// the web layer.
func resolve(ctx context.Context, db *sqlx.DB, session *scs.SessionManager) (Cart, error) {
	id := identityFrom(ctx, session)

	crt, err := Resolve(ctx, db, id)
	if err != nil {
		return Cart{}, err
	}

	if !id.IsAuthenticated() {
		if token, ok := crt.NewToken(); ok && token != SessionToken(ctx, session) {
			session.Put(ctx, sessionTokenKey, token)
		}
	}

	return crt, nil
}

func HandleShow(db *sqlx.DB, session *scs.SessionManager, pricing config.Pricing) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crt, err := resolve(ctx, db, session)
		if err != nil {
			return err
		}

		priced, err := PriceLines(ctx, db, crt.Lines)
		if err != nil {
			return err
		}

		taxRate, shippingFee, err := pricing.Rates()
		if err != nil {
			return err
		}

		out := struct {
			Cart
			Priced []PricedLine `json:"pricedLines"`
			Totals Totals       `json:"totals"`
		}{crt, priced, ComputeTotals(priced, taxRate, shippingFee)}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleAddLine(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ln LineNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crt, err := resolve(ctx, db, session)
		if err != nil {
			return err
		}

		out, err := AddLine(ctx, db, crt, ln)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidQuantity):
				return weberr.Unprocessable(err)
			case errors.Is(err, ErrProductNotFound):
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleUpdateLine(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lineID := web.Param(r, "line_id")
		if err := validate.CheckID(lineID); err != nil {
			return weberr.BadRequest(err)
		}

		var up LineUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crt, err := resolve(ctx, db, session)
		if err != nil {
			return err
		}

		out, err := SetLineQuantity(ctx, db, crt.ID, lineID, up.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidQuantity):
				return weberr.Unprocessable(err)
			case errors.Is(err, sql.ErrNoRows):
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleRemoveLine(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lineID := web.Param(r, "line_id")
		if err := validate.CheckID(lineID); err != nil {
			return weberr.BadRequest(err)
		}

		crt, err := resolve(ctx, db, session)
		if err != nil {
			return err
		}

		if err := RemoveLine(ctx, db, crt.ID, lineID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleClear(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crt, err := resolve(ctx, db, session)
		if err != nil {
			return err
		}

		if err := Clear(ctx, db, crt.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
