// Package session provides the persistent half of a client-side login session: the
// storage port the session manager reads and writes, its memory, file, and Redis
// adapters, and the JSON codec for the persisted user profile.
//
// # Persisted layout
//
// A session is two string-keyed entries: [KeyToken] holds the raw access token and
// [KeyUser] holds the user profile as a JSON object. Unknown profile fields are kept
// verbatim so a record written by a newer API survives a load/save cycle unchanged.
//
// # Architecture boundaries
//
// This package owns [Store], [State], and [User]. It does NOT interpret tokens, decide
// whether a session is authenticated, or talk to the library API: those belong to the
// session manager in the root package.
//
// # What this package must NOT do
//
//   - Import goShelf, api, or router (no upward imports).
//   - Log token values.
//   - Treat a decode failure as anything other than an error for the caller to handle.
package session
