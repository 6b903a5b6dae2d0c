package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"reelforge/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// requestIDMiddleware stamps every request with a correlation ID, reusing a
// caller-supplied one when it is short enough. The ID is echoed in the
// response and carried on the request context into logs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), rid)))
	})
}
