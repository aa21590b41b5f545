package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/sajidkabir/storefront/config"
	"github.com/sajidkabir/storefront/core/cart"
	"github.com/sajidkabir/storefront/core/claims"
	"github.com/sajidkabir/storefront/core/user"
	"github.com/sajidkabir/storefront/database"
	"github.com/sajidkabir/storefront/sslcommerz"
	"github.com/sajidkabir/storefront/validate"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// checkout resolves the caller's cart and prices its lines. An empty cart
// cannot be checked out.
func checkout(ctx context.Context, db *sqlx.DB, userID string, pricing config.Pricing) ([]cart.PricedLine, cart.Totals, error) {
	crt, err := cart.Resolve(ctx, db, cart.Authenticated(userID))
	if err != nil {
		return nil, cart.Totals{}, fmt.Errorf("resolving cart: %w", err)
	}

	priced, err := cart.PriceLines(ctx, db, crt.Lines)
	if err != nil {
		return nil, cart.Totals{}, fmt.Errorf("pricing cart lines: %w", err)
	}

	taxRate, shippingFee, err := pricing.Rates()
	if err != nil {
		return nil, cart.Totals{}, err
	}

	return priced, cart.ComputeTotals(priced, taxRate, shippingFee), nil
}

// prepare records the pending order bound to the gateway transaction.
func prepare(ctx context.Context, db *sqlx.DB, userID string, provider string, tranID string, priced []cart.PricedLine, tot cart.Totals) (Order, error) {
	now := time.Now().UTC()
	ord := Order{
		ID:        validate.GenerateID(),
		UserID:    userID,
		Provider:  provider,
		TranID:    tranID,
		Status:    Pending,
		Subtotal:  tot.Subtotal,
		Tax:       tot.Tax,
		Shipping:  tot.Shipping,
		Total:     tot.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, ord); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		for _, pl := range priced {
			ln := Line{
				OrderID:   ord.ID,
				ProductID: pl.Line.ProductID,
				Variant:   pl.Line.Variant,
				Quantity:  pl.Line.Quantity,
				UnitPrice: pl.UnitPrice,
				CreatedAt: now,
			}

			if err := CreateLine(ctx, tx, ln); err != nil {
				return fmt.Errorf("creating line: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("creating the order bound to payment[%s] for user[%s]: %w", tranID, userID, err)
	}

	return ord, nil
}

// fulfill marks the order paid, flushes the buyer's cart and walks the
// sold quantities off the stock counts, all in one transaction. Gateways
// re-send their notifications, so fulfillment of an order that already
// left pending is a no-op: only the transition that wins pending->paid
// touches stock and cart.
func fulfill(ctx context.Context, db *sqlx.DB, tranID string) error {
	ord, err := FetchByTranID(ctx, db, tranID)
	if err != nil {
		return fmt.Errorf("fetching the order bound to payment[%s]: %w", tranID, err)
	}

	lines, err := FetchLines(ctx, db, ord.ID)
	if err != nil {
		return err
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		won, err := UpdateStatus(ctx, tx, ord.ID, Pending, Paid)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		var cartID string
		err = sqlx.GetContext(ctx, tx, &cartID, `SELECT cart_id FROM carts WHERE user_id = $1`, ord.UserID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// nothing to flush
		case err != nil:
			return fmt.Errorf("finding cart of user[%s]: %w", ord.UserID, err)
		default:
			if err := cart.Clear(ctx, tx, cartID); err != nil {
				return fmt.Errorf("flushing cart: %w", err)
			}
		}

		for _, ln := range lines {
			if err := decrementStock(ctx, tx, ln.ProductID, ln.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("fulfilling the order[%s] bound to payment[%s]: %w", ord.ID, tranID, err)
	}

	return nil
}

// HandleCheckout opens an SSLCommerz payment session for the caller's
// cart and answers with the gateway page URL.
func HandleCheckout(db *sqlx.DB, gw *sslcommerz.Client, pricing config.Pricing, cfg config.SSLCommerz) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching buyer: %w", err)
		}

		priced, tot, err := checkout(ctx, db, clm.UserID, pricing)
		if err != nil {
			return err
		}

		if len(priced) == 0 {
			err := errors.New("no items to checkout")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		tranID := validate.GenerateID()

		count := 0
		for _, pl := range priced {
			count += pl.Line.Quantity
		}

		gwURL, err := gw.CreateSession(ctx, sslcommerz.SessionRequest{
			TranID:        tranID,
			Amount:        tot.Total,
			Currency:      "BDT",
			ProductName:   fmt.Sprintf("Order with %d items", count),
			NumItems:      count,
			CustomerName:  usr.Name,
			CustomerEmail: usr.Email,
			SuccessURL:    cfg.SuccessURL,
			FailURL:       cfg.FailURL,
			CancelURL:     cfg.CancelURL,
			IPNURL:        cfg.IPNURL,
		})
		if err != nil {
			return fmt.Errorf("creating gateway session: %w", err)
		}

		ord, err := prepare(ctx, db, clm.UserID, ProviderSSLCommerz, tranID, priced, tot)
		if err != nil {
			return fmt.Errorf("creating the order on the database: %w", err)
		}

		out := struct {
			Order      Order  `json:"order"`
			GatewayURL string `json:"gatewayUrl"`
		}{ord, gwURL}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleIPN receives the gateway's instant payment notification. The
// payload is untrusted until the validator API vouches for it and the
// amount matches the recorded order.
func HandleIPN(db *sqlx.DB, gw *sslcommerz.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := r.ParseForm(); err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot parse IPN payload: %w", err))
		}

		tranID := r.PostForm.Get("tran_id")
		valID := r.PostForm.Get("val_id")
		status := r.PostForm.Get("status")

		if tranID == "" || valID == "" {
			return weberr.BadRequest(errors.New("IPN payload is missing tran_id or val_id"))
		}

		ord, err := FetchByTranID(ctx, db, tranID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if status != "VALID" {
			// Only a pending order can fail; a late notification for an
			// already paid order must not flip it back.
			if _, err := UpdateStatus(ctx, db, ord.ID, Pending, Failed); err != nil {
				return err
			}
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		val, err := gw.ValidateTransaction(ctx, valID)
		if err != nil {
			return fmt.Errorf("validating transaction[%s]: %w", tranID, err)
		}

		if !val.Valid() || val.TranID != tranID || !val.Amount.Equal(ord.Total) {
			if _, err := UpdateStatus(ctx, db, ord.ID, Pending, Failed); err != nil {
				return err
			}
			return weberr.BadRequest(
				errors.New("transaction failed gateway validation"),
				weberr.WithFields(map[string]any{
					"tran_id":  tranID,
					"val_id":   valID,
					"amount":   val.Amount,
					"expected": ord.Total,
				}),
			)
		}

		if err := fulfill(ctx, db, tranID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleStripeCheckout(db *sqlx.DB, strp *stripecl.API, pricing config.Pricing, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		priced, tot, err := checkout(ctx, db, clm.UserID, pricing)
		if err != nil {
			return err
		}

		if len(priced) == 0 {
			err := errors.New("no items to checkout")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(priced))
		for _, pl := range priced {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(int64(pl.Line.Quantity)),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(cents(pl.UnitPrice)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(pl.Name),
					},
				},
			})
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			LineItems:  li,
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if _, err := prepare(ctx, db, clm.UserID, ProviderStripe, s.ID, priced, tot); err != nil {
			return fmt.Errorf("creating the order on the database: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func HandleStripeCapture(db *sqlx.DB, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, db, session.ID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ords, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
