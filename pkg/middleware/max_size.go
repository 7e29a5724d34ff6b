package middleware

import (
	"net/http"

	apperrors "smartpark/pkg/errors"
	httputil "smartpark/pkg/http"
)

// MaxRequestSize rejects a declared body over limit up front and caps the
// reader for bodies of unknown length.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.RequestTooLarge(limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
