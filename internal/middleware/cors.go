// Package middleware provides HTTP middleware for the pocketos API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/ashureev/pocketos/internal/identity"
)

// CORS returns middleware that handles CORS headers. Credentials are only
// allowed for explicit origins, never for the wildcard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", identity.TabHeaderName},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	})
}
