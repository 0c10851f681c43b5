package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// Access is the classification a route carries for the guard.
type Access uint8

const (
	// Unclassified routes are reachable with or without a session.
	Unclassified Access = iota
	// AuthRequired routes need an authenticated session.
	AuthRequired
	// GuestOnly routes are reachable only without a session (login, register).
	GuestOnly
)

func (a Access) String() string {
	switch a {
	case Unclassified:
		return "unclassified"
	case AuthRequired:
		return "auth-required"
	case GuestOnly:
		return "guest-only"
	default:
		return fmt.Sprintf("access(%d)", uint8(a))
	}
}

// Route names of the library front end.
const (
	RouteLogin            = "login"
	RouteRegister         = "register"
	RouteDashboard        = "dashboard"
	RouteBooks            = "books"
	RouteNewBook          = "new-book"
	RouteBookDetail       = "book-detail"
	RouteGoogleBookDetail = "google-book-detail"
	RouteEditBook         = "edit-book"
	RouteLoans            = "loans"
	RouteProfile          = "profile"
	RouteAdminLoans       = "admin-loans"
	RouteAdminUsers       = "admin-users"
	RouteAdminSuggestions = "admin-suggestions"
)

var (
	// ErrUnknownRoute is returned when a route name is not in the table.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrDuplicateRoute is returned when two routes share a name.
	ErrDuplicateRoute = errors.New("duplicate route name")
	// ErrInvalidRoute is returned for a route with an empty name or path.
	ErrInvalidRoute = errors.New("invalid route")
)

// Route declares one navigable destination. Path uses gorilla/mux templates,
// e.g. "/books/{id}".
type Route struct {
	Name   string
	Path   string
	Access Access
}

// DefaultRoutes returns the library front end's route table. The login page sits
// at the root path; everything behind the main layout requires a session.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteLogin, Path: "/", Access: GuestOnly},
		{Name: RouteRegister, Path: "/register", Access: GuestOnly},
		{Name: RouteDashboard, Path: "/dashboard", Access: AuthRequired},
		{Name: RouteBooks, Path: "/books", Access: AuthRequired},
		{Name: RouteNewBook, Path: "/books/new", Access: AuthRequired},
		{Name: RouteGoogleBookDetail, Path: "/books/google/{googleId}", Access: AuthRequired},
		{Name: RouteEditBook, Path: "/books/{id}/edit", Access: AuthRequired},
		{Name: RouteBookDetail, Path: "/books/{id}", Access: AuthRequired},
		{Name: RouteLoans, Path: "/loans", Access: AuthRequired},
		{Name: RouteProfile, Path: "/profile", Access: AuthRequired},
		{Name: RouteAdminLoans, Path: "/admin/loans", Access: AuthRequired},
		{Name: RouteAdminUsers, Path: "/admin/users", Access: AuthRequired},
		{Name: RouteAdminSuggestions, Path: "/admin/suggestions", Access: AuthRequired},
	}
}

// TableOption customizes a [Table].
type TableOption func(*Table)

// WithEntryRoute sets the route unauthenticated navigation is sent to.
func WithEntryRoute(name string) TableOption {
	return func(t *Table) { t.entry = name }
}

// WithLandingRoute sets the route authenticated navigation to guest-only pages
// is sent to.
func WithLandingRoute(name string) TableOption {
	return func(t *Table) { t.landing = name }
}

// Table is an immutable set of named routes. Routes are matched in declaration
// order, so literal paths must precede templates that would also match them.
type Table struct {
	mux     *mux.Router
	routes  []Route
	access  map[string]Access
	entry   string
	landing string
}

// NewTable validates routes and builds the matcher. The entry and landing
// routes (default [RouteLogin] and [RouteDashboard]) must be present and must
// not need path variables.
func NewTable(routes []Route, opts ...TableOption) (*Table, error) {
	t := &Table{
		mux:     mux.NewRouter(),
		routes:  make([]Route, len(routes)),
		access:  make(map[string]Access, len(routes)),
		entry:   RouteLogin,
		landing: RouteDashboard,
	}
	copy(t.routes, routes)
	for _, opt := range opts {
		opt(t)
	}

	for _, r := range t.routes {
		if r.Name == "" || r.Path == "" || r.Path[0] != '/' {
			return nil, fmt.Errorf("%w: name=%q path=%q", ErrInvalidRoute, r.Name, r.Path)
		}
		if r.Access > GuestOnly {
			return nil, fmt.Errorf("%w: %s has %s", ErrInvalidRoute, r.Name, r.Access)
		}
		if _, ok := t.access[r.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, r.Name)
		}
		route := t.mux.NewRoute().Name(r.Name).Path(r.Path)
		if err := route.GetError(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoute, r.Name, err)
		}
		t.access[r.Name] = r.Access
	}

	for _, name := range []string{t.entry, t.landing} {
		if _, err := t.URL(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Match returns the route whose template matches path. Only the path part of
// a URL is matched, so a query or fragment is ignored, and one trailing slash
// is tolerated ("/books/" matches "/books").
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return Route{}, nil, false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if route, vars, ok := t.match(p); ok {
		return route, vars, true
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return t.match(strings.TrimSuffix(p, "/"))
	}
	return Route{}, nil, false
}

func (t *Table) match(path string) (Route, map[string]string, bool) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}

	var m mux.RouteMatch
	if !t.mux.Match(req, &m) || m.Route == nil || m.MatchErr != nil {
		return Route{}, nil, false
	}
	name := m.Route.GetName()
	return Route{Name: name, Path: t.pathTemplate(name), Access: t.access[name]}, m.Vars, true
}

// URL builds the path of the named route. pairs are mux variable name/value
// pairs, e.g. URL(RouteBookDetail, "id", "42").
func (t *Table) URL(name string, pairs ...string) (string, error) {
	route := t.mux.Get(name)
	if route == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("build %s url: %w", name, err)
	}
	return u.Path, nil
}

// Access returns the classification of the named route.
func (t *Table) Access(name string) (Access, bool) {
	a, ok := t.access[name]
	return a, ok
}

// Routes returns a copy of the declared routes.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// EntryRoute is the name of the unauthenticated entry point.
func (t *Table) EntryRoute() string { return t.entry }

// LandingRoute is the name of the default authenticated page.
func (t *Table) LandingRoute() string { return t.landing }

func (t *Table) pathTemplate(name string) string {
	for _, r := range t.routes {
		if r.Name == name {
			return r.Path
		}
	}
	return ""
}
