package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goShelf/router"
)

type decisionContextKey struct{}

// DecisionFromContext returns the guard decision that admitted the request.
func DecisionFromContext(ctx context.Context) (router.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(router.Decision)
	return d, ok
}

// Guard returns middleware that admits a request only when the guard allows its
// path for the current session; otherwise the client is redirected.
func Guard(guard *router.Guard, auth router.AuthState) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guard == nil {
				http.Error(w, "navigation guard not configured", http.StatusInternalServerError)
				return
			}

			authenticated := auth != nil && auth.IsAuthenticated()
			d := guard.Evaluate(r.URL.Path, authenticated)
			if !d.Allow {
				http.Redirect(w, r, d.Path, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
