package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sajidkabir/storefront/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger writes one line when a request starts and one when it completes,
// reading the status and byte count off the wrapped ResponseWriter.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			entry := log.WithFields(logrus.Fields{
				"req_id":     ContextRequestID(ctx),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remoteaddr": r.RemoteAddr,
			})

			entry.Info("started")
			start := time.Now().UTC()

			ww := mutil.WrapWriter(w)
			err := handler(ctx, ww, r)

			entry.WithFields(logrus.Fields{
				"statuscode": ww.Status(),
				"bytes":      ww.BytesWritten(),
				"since":      time.Since(start).String(),
			}).Info("completed")

			return err
		}
		return h
	}
	return m
}
