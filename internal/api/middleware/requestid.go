package middleware

import (
	"net/http"

	"github.com/pysugar/visionary-studio/internal/logging"
)

// RequestIDHeader is honoured on input and echoed on output.
const RequestIDHeader = "X-Request-ID"

// RequestID puts the caller's X-Request-ID (or a fresh one) into the request
// context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}
