package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/choreboss/internal/auth"
)

const requestIDHeader = "X-Request-ID"

// Identify populates auth.Caller from the PIN header, the client IP and a
// request id. An incoming X-Request-ID is kept; otherwise a new UUID is
// issued and echoed back.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		c := auth.Caller{
			PIN:       strings.TrimSpace(r.Header.Get(auth.PINHeader)),
			RemoteIP:  RealIP(r),
			RequestID: reqID,
		}
		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), c)))
	})
}

// RequirePIN rejects requests that carry no PIN at all. Whether the PIN is
// any good is the authorization policy's call, not this middleware's.
func RequirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PIN(r.Context()) == "" {
			http.Error(w, "PIN required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
