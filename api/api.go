package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sajidkabir/storefront/api/middleware"
	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/config"
	"github.com/sajidkabir/storefront/core/auth"
	"github.com/sajidkabir/storefront/core/cart"
	"github.com/sajidkabir/storefront/core/catalog"
	"github.com/sajidkabir/storefront/core/order"
	"github.com/sajidkabir/storefront/core/review"
	"github.com/sajidkabir/storefront/core/user"
	"github.com/sajidkabir/storefront/core/wishlist"
	"github.com/sajidkabir/storefront/rate"
	"github.com/sajidkabir/storefront/sslcommerz"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Session    *scs.SessionManager
	Mailer     auth.Mailer
	OTPTimeout time.Duration
	Gateway    *sslcommerz.Client
	Stripe     *stripecl.API
	Pricing    config.Pricing
	SSLCCfg    config.SSLCommerz
	StripeCfg  config.Stripe
	AuthLimit  *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate()
	limited := middleware.RateLimit(cfg.AuthLimit)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Mailer, cfg.OTPTimeout), limited)
	a.Handle(http.MethodPost, "/auth/activate", auth.HandleActivate(cfg.DB), limited)
	a.Handle(http.MethodPost, "/auth/resend", auth.HandleResendActivation(cfg.DB, cfg.Mailer, cfg.OTPTimeout), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/categories", catalog.HandleListCategories(cfg.DB))
	a.Handle(http.MethodGet, "/products", catalog.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/products/{slug}", catalog.HandleShow(cfg.DB))

	a.Handle(http.MethodGet, "/products/{product_id}/reviews", review.HandleListByProduct(cfg.DB))
	a.Handle(http.MethodPost, "/products/{product_id}/reviews", review.HandleCreate(cfg.DB), authen)

	a.Handle(http.MethodGet, "/wishlist", wishlist.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPut, "/wishlist/{product_id}", wishlist.HandleToggle(cfg.DB), authen)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB, cfg.Session, cfg.Pricing))
	a.Handle(http.MethodDelete, "/cart", cart.HandleClear(cfg.DB, cfg.Session))
	a.Handle(http.MethodPut, "/cart/lines", cart.HandleAddLine(cfg.DB, cfg.Session))
	a.Handle(http.MethodPut, "/cart/lines/{line_id}", cart.HandleUpdateLine(cfg.DB, cfg.Session))
	a.Handle(http.MethodDelete, "/cart/lines/{line_id}", cart.HandleRemoveLine(cfg.DB, cfg.Session))

	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPost, "/checkout", order.HandleCheckout(cfg.DB, cfg.Gateway, cfg.Pricing, cfg.SSLCCfg), authen)
	a.Handle(http.MethodPost, "/checkout/ipn", order.HandleIPN(cfg.DB, cfg.Gateway))
	a.Handle(http.MethodPost, "/checkout/stripe", order.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.Pricing, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/checkout/stripe/capture", order.HandleStripeCapture(cfg.DB, cfg.StripeCfg))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
