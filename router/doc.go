// Package router decides, for every navigation, whether the current session may
// reach the requested route.
//
// A [Table] is built once from named routes, each tagged [AuthRequired],
// [GuestOnly], or [Unclassified]. [Guard.Evaluate] is a pure function of the
// destination path and whether a session is authenticated; it never performs I/O.
// Redirect targets are route names resolved through the table, so renaming a path
// only touches the table.
//
// [Router] is the navigation history that consumes guard decisions. It is also
// the sink for navigation commands emitted by the session manager on logout and
// session expiry.
package router
