// Package middleware holds HTTP middleware for the viewer API.
package middleware

import (
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/mediaview/internal/logger"
)

// RequestLogger logs each request through the internal logger and attaches
// a LogContext (request id, client ip) to the request context so handler
// logs carry the same fields.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lc := logger.NewLogContext(chimw.GetReqID(r.Context()), clientIP(r.RemoteAddr))
		ctx := logger.WithContext(r.Context(), lc)

		logger.DebugCtx(ctx, "API request started",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.InfoCtx(ctx, "API request completed",
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start))
	})
}

// clientIP strips the port from addr. RealIP may already have replaced it
// with a bare address.
func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
