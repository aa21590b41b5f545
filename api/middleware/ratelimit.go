package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sajidkabir/storefront/api/web"
	"github.com/sajidkabir/storefront/api/weberr"
	"github.com/sajidkabir/storefront/rate"
)

// RateLimit rejects requests above the per-client budget, keyed by the
// caller's address.
func RateLimit(limiter *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !limiter.Check(host) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
