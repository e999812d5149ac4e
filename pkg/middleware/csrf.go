package middleware

import (
	"crypto/subtle"
	"net/http"

	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRF enforces the double-submit check on mutating requests: the
// X-CSRF-Token header must equal the csrf_token cookie.
func CSRF(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if reason := checkCSRF(r); reason != "" {
				log.Ctx(r.Context()).Warn("CSRF validation failed",
					"path", r.URL.Path,
					"reason", reason,
				)
				_ = apperrors.WriteError(w, apperrors.Forbidden("CSRF token missing or invalid"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkCSRF(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return "missing cookie"
	}
	header := r.Header.Get(CSRFHeaderName)
	if header == "" {
		return "missing header"
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return "mismatch"
	}
	return ""
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
