package middleware

import (
	"net/http"
	"time"

	"bundle-app-shopify-layer/internal/domain"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MaxBodyBytes caps request bodies; webhook payloads are well below this
const MaxBodyBytes = 1 << 20

// SecurityHeadersMiddleware sets response headers for an app rendered inside
// the Shopify admin iframe
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			frameAncestors := "https://admin.shopify.com"
			if shop := domain.NormalizeShop(r.URL.Query().Get("shop")); domain.IsValidShopDomain(shop) {
				frameAncestors = "https://" + shop + " " + frameAncestors
			}

			h := w.Header()
			h.Set("Content-Security-Policy", "frame-ancestors "+frameAncestors+";")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			next.ServeHTTP(w, r)
		})
	}
}

// InputValidationMiddleware limits request body size
func InputValidationMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > MaxBodyBytes {
				logger.Warn().
					Str("path", r.URL.Path).
					Int64("contentLength", r.ContentLength).
					Msg("Rejected oversized request")
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditLoggingMiddleware logs one line per request
func AuditLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var event *zerolog.Event
			switch {
			case status >= 500:
				event = logger.Error()
			case status >= 400:
				event = logger.Warn()
			default:
				event = logger.Info()
			}

			event.
				Str("requestId", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("shop", r.URL.Query().Get("shop")).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remoteAddr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}
