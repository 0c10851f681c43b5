// Package stubapi is an in-process stand-in for the library API, used by the
// example server, the CLI's stub-api command and end-to-end tests.
//
// It serves the endpoints the session layer talks to (login, register, the
// current user, books) with bcrypt password hashes, HS256 access
// tokens from the jwt package and optional Redis-backed login throttling.
// State is held in memory and lost on restart.
package stubapi
