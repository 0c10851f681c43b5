package router

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Allow bool
	// Route is the matched destination when Allow is true, or the redirect
	// target otherwise.
	Route string
	// Path is the concrete path to continue with: the requested path when
	// allowed, the resolved redirect target when not.
	Path string
	// Reason describes why a redirect happened.
	Reason string
}

// Guard evaluates navigations against a [Table].
type Guard struct {
	table *Table
}

// NewGuard returns a guard over table.
func NewGuard(table *Table) *Guard {
	return &Guard{table: table}
}

// Table returns the guard's route table.
func (g *Guard) Table() *Table {
	return g.table
}

// Evaluate decides whether path may be entered. It is deterministic and has no
// side effects. Matching looks at the path part only; an allowed Decision keeps
// path as given, query included.
func (g *Guard) Evaluate(path string, authenticated bool) Decision {
	if path == "" {
		path = "/"
	}
	route, _, ok := g.table.Match(path)
	switch {
	case !ok:
		return g.redirect(g.table.entry, "no route matches "+path)
	case route.Access == AuthRequired && !authenticated:
		return g.redirect(g.table.entry, route.Name+" requires an authenticated session")
	case route.Access == GuestOnly && authenticated:
		return g.redirect(g.table.landing, route.Name+" is only for guests")
	default:
		return Decision{Allow: true, Route: route.Name, Path: path}
	}
}

func (g *Guard) redirect(name, reason string) Decision {
	// NewTable verified that entry and landing build without variables.
	target, _ := g.table.URL(name)
	return Decision{Route: name, Path: target, Reason: reason}
}
