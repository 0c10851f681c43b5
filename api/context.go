package api

import "context"

type skipExpiryContextKey struct{}

// WithoutSessionExpiry marks requests made with ctx so a 401 response is returned
// to the caller without invoking the [UnauthorizedHandler]. Credential checks such
// as login use it: a rejected password is not an expired session.
func WithoutSessionExpiry(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipExpiryContextKey{}, true)
}

func sessionExpirySkipped(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(skipExpiryContextKey{}).(bool)
	return skip
}
