package middleware

import (
	"mime"
	"net/http"

	apperrors "smartpark/pkg/errors"
	httputil "smartpark/pkg/http"
	"smartpark/pkg/logger"
)

const jsonMediaType = "application/json"

// ContentTypeValidation requires JSON on every request that carries a body.
// POST, PUT and PATCH always count as carrying one. A check-out DELETE or a
// GET passes without a Content-Type unless it sends a body anyway.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if carriesBody(r) {
				header := r.Header.Get("Content-Type")
				if mediaType(header) != jsonMediaType {
					rejectInvalidContentType(w, log, r, header)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func carriesBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return r.ContentLength > 0 || len(r.TransferEncoding) > 0
}

// mediaType lower-cases and strips parameters; malformed headers yield "".
func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}

func rejectInvalidContentType(w http.ResponseWriter, log *logger.Logger, r *http.Request, contentType string) {
	log.Warn("Invalid Content-Type header",
		"request_id", RequestIDFrom(r),
		"content_type", contentType,
		"path", r.URL.Path,
		"method", r.Method,
	)

	_ = httputil.WriteError(w, apperrors.UnsupportedMediaType(contentType))
}
