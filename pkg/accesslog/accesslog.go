package accesslog

import (
	"net/http"
	"time"

	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns a middleware that logs one entry per request with
// method, path, status, size and duration.
func Handler(logger logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.With(r.Context(),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			).Infof("%s %s", r.Method, r.URL.Path)
		}
		return http.HandlerFunc(f)
	}
}
