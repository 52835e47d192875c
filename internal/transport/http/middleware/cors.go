package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the HR dashboards to call the API. No origins means CORS
// headers are never sent.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "X-Unread-Count", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
