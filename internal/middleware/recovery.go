package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"estate-backend/pkg/utils"
)

// PanicRecovery converts a handler panic into a 500 so the connection always
// gets a response. Webhook deliveries in particular must never see a dropped
// connection, or the provider treats the payment event as undelivered.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] Panic on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
