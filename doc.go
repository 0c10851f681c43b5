// Package goShelf is the client-side session layer for the library API.
//
// A [Manager] owns the access token and user profile of the signed-in user,
// persists them through a [session.Store], and exposes the authorized
// [api.Client] used for every API call. A 401 from any request made through
// that client purges the session and issues a navigation command to the
// entry route; route access decisions live in the router package and read
// the Manager's authentication flag.
//
// Managers are created through [Builder.Build] and are safe for concurrent use.
//
// # Architecture boundaries
//
// goShelf never touches the router directly. Navigation is emitted through a
// [Navigator], which router.Router implements. Storage, transport and token
// inspection live in the session, api and jwt sub-packages.
package goShelf
