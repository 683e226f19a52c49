package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"marketsync-api/pkg/apierror"
)

// Recovery turns handler panics into 500 responses instead of dropped
// connections, keeping the scheduler goroutines in the same process alive.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[HTTP] Panic on %s %s (rid=%s): %v\n%s",
					r.Method, r.URL.Path, GetRequestID(r.Context()), err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write(apierror.InternalError("internal server error").ToJSON())
			}
		}()

		next.ServeHTTP(w, r)
	})
}
