// Package api is the authorized HTTP client every library API call goes through.
//
// # Interception
//
// [Transport] wraps an http.RoundTripper. Before dispatch it attaches the current
// bearer token (when one exists) and a request id. After dispatch it inspects the
// status: a 401 hands the response to an [UnauthorizedHandler] before the response
// is returned, so the session is already purged when the caller sees the failure.
//
// [Client] adds base-URL joining, JSON bodies, and turns non-2xx responses into
// [*StatusError] values that still carry the original status and body.
//
// # What this package must NOT do
//
//   - Retry requests or refresh tokens.
//   - Own session state (it reads tokens through [TokenSource]).
//   - Import goShelf, session, or router.
package api
