// Package middleware exposes HTTP adapters that apply the route guard to a served
// front end and log its requests.
//
// # Guards
//
//   - [Guard] evaluates every request path with [router.Guard] and answers
//     redirects with 302 Found to the resolved route path.
//   - [RequestLogger] writes one zerolog event per request.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard evaluations. It does NOT
// decide access itself: all decisions come from router.Guard.Evaluate, and session
// state is read through [router.AuthState].
package middleware
