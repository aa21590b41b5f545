package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sajidkabir/storefront/api/web"
)

const (
	requestIDHeader = "X-Request-Id"

	// Upstream-supplied ids are truncated to this length.
	requestIDMaxLen = 128
)

type requestIDCtxKey int

const requestIDKey requestIDCtxKey = 1

// RequestID tags every request with an id for log correlation. An id
// supplied by an upstream proxy in X-Request-Id is honored, otherwise a
// fresh one is minted.
func RequestID() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			id := r.Header.Get(requestIDHeader)
			switch {
			case id == "":
				id = uuid.NewString()
			case len(id) > requestIDMaxLen:
				id = id[:requestIDMaxLen]
			}

			ctx = context.WithValue(ctx, requestIDKey, id)

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// ContextRequestID returns the request id, or "" outside a request.
func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
