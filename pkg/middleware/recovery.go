package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "smartpark/pkg/errors"
	httputil "smartpark/pkg/http"
	"smartpark/pkg/logger"
)

// Recovery turns a handler panic into a 500 in the usual error envelope,
// carrying the request id so the client can quote it.
// http.ErrAbortHandler is passed on untouched.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				requestID := RequestIDFrom(r)
				log.Error("Panic recovered",
					"request_id", requestID,
					"error", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				appErr := apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", p)).
					WithDetails(map[string]any{"request_id": requestID})
				_ = httputil.WriteError(w, appErr)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
