package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/itszoriel/munlink-sub001/pkg/constants"
)

// Provide injects a fixed value into every request context under key.
func Provide(key constants.ContextKey, value interface{}) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
