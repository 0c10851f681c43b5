package goShelf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goShelf/api"
	"github.com/MrEthical07/goShelf/jwt"
	"github.com/MrEthical07/goShelf/router"
	"github.com/MrEthical07/goShelf/session"
	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

func newGuardRouter(t *testing.T, m *Manager) *router.Router {
	t.Helper()
	table, err := router.NewTable(router.DefaultRoutes())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return router.NewRouter(router.NewGuard(table), m, zerolog.Nop())
}

func TestIsLibrarianDerivation(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	tests := []struct {
		role      string
		superuser bool
		want      bool
	}{
		{role: "LIBRARIAN", superuser: false, want: true},
		{role: "LIBRARIAN", superuser: true, want: true},
		{role: "MEMBER", superuser: true, want: true},
		{role: "MEMBER", superuser: false, want: false},
		{role: "", superuser: false, want: false},
		{role: "librarian", superuser: false, want: false},
	}

	for _, tc := range tests {
		store := session.NewMemoryStore()
		seedSession(t, store, "tok", &User{ID: 1, Username: "u", Role: tc.role, IsSuperuser: tc.superuser})
		m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
		if got := m.IsLibrarian(); got != tc.want {
			t.Fatalf("role=%q superuser=%v: IsLibrarian=%v, want %v", tc.role, tc.superuser, got, tc.want)
		}
		if !m.IsAuthenticated() {
			t.Fatal("expected authenticated with token present")
		}
	}
}

func TestLibrarianRoleIsConfigurable(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "tok", &User{Role: "STAFF"})

	cfg := testConfig(lib)
	cfg.Roles.LibrarianRole = "STAFF"
	m := buildManager(t, New().WithConfig(cfg).WithStore(store))
	if !m.IsLibrarian() {
		t.Fatal("expected configured role to grant librarian access")
	}
}

func TestFlagsRecomputeOnEveryRead(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	m := buildManager(t, New().WithConfig(testConfig(lib)))
	ctx := context.Background()

	if m.IsAuthenticated() || m.IsLibrarian() {
		t.Fatal("empty session must be unauthenticated")
	}
	if _, err := m.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !m.IsAuthenticated() || !m.IsLibrarian() {
		t.Fatal("flags did not follow login")
	}
	if err := m.UpdateUser(ctx, &User{ID: 1, Username: "alice", Role: "MEMBER"}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if m.IsLibrarian() {
		t.Fatal("IsLibrarian did not follow profile update")
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("IsAuthenticated did not follow logout")
	}
}

func TestScenarioGuestRedirectedToLogin(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	m := buildManager(t, New().WithConfig(testConfig(lib)))
	r := newGuardRouter(t, m)

	d, err := r.Push(context.Background(), "/books")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if d.Route != router.RouteLogin || d.Path != "/" {
		t.Fatalf("expected redirect to login, got %+v", d)
	}
}

func TestScenarioLoginThenAuthorizedRequest(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	ctx := context.Background()

	res, err := m.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.Username != "alice" || res.Refresh != "r1" {
		t.Fatalf("unexpected login result: %+v", res)
	}
	if m.Token() != "tok123" || !m.IsLibrarian() {
		t.Fatalf("unexpected session: token=%q librarian=%v", m.Token(), m.IsLibrarian())
	}

	var books []map[string]any
	if err := m.Client().Get(ctx, "books/", &books); err != nil {
		t.Fatalf("get books: %v", err)
	}
	if got := lib.lastAuth(); got != "Bearer tok123" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if len(books) != 1 {
		t.Fatalf("unexpected books: %v", books)
	}

	token, err := store.Get(ctx, session.KeyToken)
	if err != nil || token != "tok123" {
		t.Fatalf("persisted token = %q, %v", token, err)
	}
	if _, err := store.Get(ctx, session.KeyUser); err != nil {
		t.Fatalf("persisted user missing: %v", err)
	}
}

func TestScenarioRejectedTokenPurgesAndNavigates(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "stale", &User{ID: 2, Username: "bob"})
	nav := &navRecorder{}
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(nav))
	ctx := context.Background()

	err := m.Client().Get(ctx, "books/", nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if lib.lastAuth() != "Bearer stale" {
		t.Fatalf("request did not carry stale token: %q", lib.lastAuth())
	}
	if m.IsAuthenticated() || m.User() != nil {
		t.Fatal("session not purged in memory")
	}
	if _, err := store.Get(ctx, session.KeyToken); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("persisted token not purged: %v", err)
	}
	if _, err := store.Get(ctx, session.KeyUser); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("persisted user not purged: %v", err)
	}
	if routes := nav.Routes(); len(routes) != 1 || routes[0] != router.RouteLogin {
		t.Fatalf("expected navigation to login, got %v", routes)
	}
	if got := m.metrics.Value(MetricSessionExpired); got != 1 {
		t.Fatalf("expected 1 expired session, got %d", got)
	}
}

func TestScenarioSessionRedirectedFromLogin(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "tok123", &User{ID: 1, Username: "alice"})
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	r := newGuardRouter(t, m)

	d, err := r.Push(context.Background(), "/")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if d.Route != router.RouteDashboard || d.Path != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %+v", d)
	}
}

func TestLogoutDrivesRouterToEntry(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "tok123", &User{ID: 1})

	table, err := router.NewTable(router.DefaultRoutes())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	var r *router.Router
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(NavigatorFunc(func(ctx context.Context, name string) error {
		return r.Navigate(ctx, name)
	})))
	r = router.NewRouter(router.NewGuard(table), m, zerolog.Nop())

	ctx := context.Background()
	if _, err := r.Push(ctx, "/loans"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if r.Current().Route != router.RouteLoans {
		t.Fatalf("expected loans, got %+v", r.Current())
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if r.Current().Route != router.RouteLogin {
		t.Fatalf("expected login after logout, got %+v", r.Current())
	}
}

func TestLoginRejectedCredentialsKeepSession(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		lib := newFakeLibraryAPI(t)
		lib.setLogin(status, `{"detail":"No active account found with the given credentials"}`)
		store := session.NewMemoryStore()
		seedSession(t, store, "old", &User{ID: 2, Username: "bob"})
		nav := &navRecorder{}
		m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(nav))
		ctx := context.Background()

		_, err := m.Login(ctx, "bob", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("status %d: expected ErrInvalidCredentials, got %v", status, err)
		}
		if api.StatusCode(err) != status {
			t.Fatalf("status %d: wrapped status = %d", status, api.StatusCode(err))
		}
		if m.Token() != "old" || m.User().Username != "bob" {
			t.Fatalf("status %d: session changed: %+v", status, m.State())
		}
		if token, _ := store.Get(ctx, session.KeyToken); token != "old" {
			t.Fatalf("status %d: persisted token changed to %q", status, token)
		}
		if len(nav.Routes()) != 0 {
			t.Fatalf("status %d: credential failure navigated: %v", status, nav.Routes())
		}
	}
}

func TestLoginServerErrorWrapsLoginFailed(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	lib.setLogin(http.StatusBadGateway, `upstream down`)
	m := buildManager(t, New().WithConfig(testConfig(lib)))

	_, err := m.Login(context.Background(), "alice", "pw")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("server error must not look like bad credentials")
	}
	if m.metrics.Value(MetricLoginFailure) != 1 {
		t.Fatal("expected login failure counted")
	}
}

func TestLoginMalformedResponse(t *testing.T) {
	for _, body := range []string{`{"access":""}`, `{"access":"tok"}`, `{"user":{"id":1}}`} {
		lib := newFakeLibraryAPI(t)
		lib.setLogin(http.StatusOK, body)
		m := buildManager(t, New().WithConfig(testConfig(lib)))

		if _, err := m.Login(context.Background(), "alice", "pw"); !errors.Is(err, ErrMalformedLoginResponse) {
			t.Fatalf("%s: expected ErrMalformedLoginResponse, got %v", body, err)
		}
		if m.IsAuthenticated() {
			t.Fatalf("%s: malformed login authenticated", body)
		}
	}
}

func TestLoginStoreFailureLeavesSessionUntouched(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := newFlakyStore()
	seedSession(t, store, "old", &User{ID: 2, Username: "bob"})
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	store.fail(true, false)

	_, err := m.Login(context.Background(), "alice", "pw")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if m.Token() != "old" || m.User().Username != "bob" {
		t.Fatalf("in-memory session changed: %+v", m.State())
	}
}

func TestLogoutIdempotent(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "tok123", &User{ID: 1})
	nav := &navRecorder{}
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(nav))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.Logout(ctx); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		if m.IsAuthenticated() || m.User() != nil {
			t.Fatalf("logout %d: session remains", i)
		}
		if store.Len() != 0 {
			t.Fatalf("logout %d: store holds %d entries", i, store.Len())
		}
	}
	routes := nav.Routes()
	if len(routes) != 2 || routes[0] != router.RouteLogin || routes[1] != router.RouteLogin {
		t.Fatalf("expected two navigations to login, got %v", routes)
	}
}

func TestLogoutStoreFailureStillClearsMemory(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := newFlakyStore()
	seedSession(t, store, "tok123", &User{ID: 1})
	nav := &navRecorder{}
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(nav))
	store.fail(false, true)

	err := m.Logout(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("memory not cleared")
	}
	if len(nav.Routes()) != 1 {
		t.Fatalf("expected navigation despite store failure, got %v", nav.Routes())
	}
}

func TestSessionRoundTripAcrossManagers(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := testConfig(lib)
	cfg.Session.Backend = BackendFile
	cfg.Session.FilePath = path

	first := buildManager(t, New().WithConfig(cfg))
	if _, err := first.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	second := buildManager(t, New().WithConfig(cfg))
	if second.Token() != first.Token() {
		t.Fatalf("token mismatch: %q vs %q", second.Token(), first.Token())
	}
	a, _ := json.Marshal(first.User())
	b, _ := json.Marshal(second.User())
	if string(a) != string(b) {
		t.Fatalf("user mismatch:\n%s\n%s", a, b)
	}
	if _, ok := second.User().Extra["phone"]; !ok {
		t.Fatalf("unknown field lost: %s", b)
	}
	if second.metrics.Value(MetricSessionRestored) != 1 {
		t.Fatal("expected restored session counted")
	}
}

func TestCorruptPersistedUserStartsLoggedOut(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, session.KeyToken, "tok123"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := store.Set(ctx, session.KeyUser, "{not json"); err != nil {
		t.Fatalf("set user: %v", err)
	}

	cfg := testConfig(lib)
	cfg.Audit.Enabled = true
	sink := NewChannelSink(4)
	m := buildManager(t, New().WithConfig(cfg).WithStore(store).WithAuditSink(sink))

	if m.IsAuthenticated() || m.User() != nil {
		t.Fatalf("corrupt session hydrated: %+v", m.State())
	}
	if store.Len() != 0 {
		t.Fatalf("corrupt entries not cleared: %d left", store.Len())
	}
	if m.metrics.Value(MetricSessionCorrupt) != 1 {
		t.Fatal("expected corrupt session counted")
	}
	_ = m.Close()
	select {
	case ev := <-sink.Events():
		if ev.EventType != AuditSessionCorrupt || ev.Success {
			t.Fatalf("unexpected audit event: %+v", ev)
		}
	default:
		t.Fatal("expected session_corrupt audit event")
	}
}

func TestLoginAcceptsLooselyTypedProfile(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	lib.setLogin(http.StatusOK, `{"access":"tok123","user":{"id":"7","role":"READER","is_superuser":"false"}}`)
	store := session.NewMemoryStore()
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))

	res, err := m.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !m.IsAuthenticated() || res.User.ID != 7 {
		t.Fatalf("unexpected session: %+v", m.State())
	}
	if m.IsLibrarian() {
		t.Fatal(`"is_superuser":"false" must not grant librarian access`)
	}
	persisted, err := store.Get(context.Background(), session.KeyUser)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if persisted != `{"id":"7","is_superuser":"false","role":"READER"}` {
		t.Fatalf("persisted user rewritten: %s", persisted)
	}
}

func TestHydrateLooselyTypedProfile(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, session.KeyToken, "tok123"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := store.Set(ctx, session.KeyUser, `{"id":"7","role":"LIBRARIAN","is_superuser":"true"}`); err != nil {
		t.Fatalf("set user: %v", err)
	}

	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	if !m.IsAuthenticated() || m.User() == nil {
		t.Fatalf("session not restored: %+v", m.State())
	}
	u := m.User()
	if u.ID != 7 || u.IsSuperuser || !m.IsLibrarian() {
		t.Fatalf("unexpected user: %+v", u)
	}
	if m.metrics.Value(MetricSessionCorrupt) != 0 {
		t.Fatal("loosely typed profile counted as corrupt")
	}
}

func TestUserWithoutTokenIsUnauthenticated(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "", &User{ID: 1, Role: "LIBRARIAN"})
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))

	if m.IsAuthenticated() {
		t.Fatal("user without token must be unauthenticated")
	}
	if m.User() == nil {
		t.Fatal("user record should still load")
	}
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, jwt.Claims{
		UserID:    "1",
		TokenType: jwt.TokenTypeAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte("server-only-secret-value"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestDropExpiredOnLoad(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	expired := expiredJWT(t)

	tests := []struct {
		name     string
		token    string
		drop     bool
		wantAuth bool
	}{
		{name: "expired kept by default", token: expired, drop: false, wantAuth: true},
		{name: "expired dropped", token: expired, drop: true, wantAuth: false},
		{name: "opaque kept", token: "opaque-token", drop: true, wantAuth: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := session.NewMemoryStore()
			seedSession(t, store, tc.token, &User{ID: 1})
			cfg := testConfig(lib)
			cfg.Session.DropExpiredOnLoad = tc.drop
			m := buildManager(t, New().WithConfig(cfg).WithStore(store))
			if m.IsAuthenticated() != tc.wantAuth {
				t.Fatalf("IsAuthenticated = %v, want %v", m.IsAuthenticated(), tc.wantAuth)
			}
			if !tc.wantAuth && store.Len() != 0 {
				t.Fatal("dropped session not cleared from store")
			}
		})
	}
}

func TestUpdateUser(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "tok123", &User{ID: 1, Username: "alice"})
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	ctx := context.Background()

	if err := m.UpdateUser(ctx, nil); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	u := &User{ID: 1, Username: "alice", Email: "new@example.com", Role: "LIBRARIAN"}
	if err := m.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	u.Email = "mutated@example.com"
	if m.User().Email != "new@example.com" {
		t.Fatal("manager shares caller's user")
	}
	if m.Token() != "tok123" {
		t.Fatal("update changed token")
	}
	st, err := session.Load(ctx, store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Token != "tok123" || st.User.Email != "new@example.com" {
		t.Fatalf("unexpected persisted state: %+v", st)
	}
}

func TestRegister(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	m := buildManager(t, New().WithConfig(testConfig(lib)))
	ctx := context.Background()

	u, err := m.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID != 9 || u.Username != "carol" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if m.IsAuthenticated() {
		t.Fatal("register must not log in")
	}

	if _, err := m.Register(ctx, RegisterInput{Username: " ", Password: "pw"}); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}

	_, err = m.Register(ctx, RegisterInput{Username: "taken", Password: "pw"})
	if !errors.Is(err, ErrRegisterFailed) || !errors.Is(err, api.ErrBadRequest) {
		t.Fatalf("expected ErrRegisterFailed wrapping bad request, got %v", err)
	}
}

func TestTokenClaims(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store))
	if _, err := m.TokenClaims(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	signer, err := jwt.NewSigner(jwt.SignerConfig{Secret: []byte("0123456789abcdef0123"), AccessTTL: time.Minute})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	token, err := signer.Issue("1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	lib.setLogin(http.StatusOK, `{"access":"`+token+`","user":{"id":1}}`)
	if _, err := m.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := m.TokenClaims()
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims.UserID != "1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuditLifecycleEvents(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	cfg := testConfig(lib)
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	sink := NewChannelSink(8)
	m, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []string{AuditLogin, AuditLogout}
	for _, typ := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != typ || ev.Username != "alice" || ev.UserID != "1" {
				t.Fatalf("expected %s for alice, got %+v", typ, ev)
			}
		default:
			t.Fatalf("missing %s event", typ)
		}
	}
}

func TestBuilderSingleUse(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	b := New().WithConfig(testConfig(lib))
	buildManager(t, b)
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "not a url"
	if _, err := New().WithConfig(cfg).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Session.Backend = BackendRedis
	if _, err := New().WithConfig(cfg).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for redis without addr, got %v", err)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	lib := newFakeLibraryAPI(t)
	cfg := testConfig(lib)
	cfg.Session.Backend = BackendRedis
	cfg.Session.Redis.Addr = mr.Addr()
	cfg.Session.Redis.Prefix = "shelf"
	cfg.Session.Redis.TTL = time.Hour

	m := buildManager(t, New().WithConfig(cfg))
	if _, err := m.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	got, err := mr.Get("shelf:token")
	if err != nil || got != "tok123" {
		t.Fatalf("redis token = %q, %v", got, err)
	}
	if ttl := mr.TTL("shelf:user"); ttl != time.Hour {
		t.Fatalf("expected user ttl 1h, got %v", ttl)
	}

	other := buildManager(t, New().WithConfig(cfg))
	if other.Token() != "tok123" {
		t.Fatal("second replica did not share the session")
	}
}

func TestConcurrentUnauthorizedResponses(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	store := session.NewMemoryStore()
	seedSession(t, store, "stale", &User{ID: 2})
	nav := &navRecorder{}
	m := buildManager(t, New().WithConfig(testConfig(lib)).WithStore(store).WithNavigator(nav))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Client().Get(context.Background(), "books/", nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	}
	if m.IsAuthenticated() || store.Len() != 0 {
		t.Fatal("session survived concurrent 401s")
	}
	if len(nav.Routes()) != n {
		t.Fatalf("expected %d navigations, got %d", n, len(nav.Routes()))
	}
}

func TestRequestMetrics(t *testing.T) {
	lib := newFakeLibraryAPI(t)
	m := buildManager(t, New().WithConfig(testConfig(lib)))
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Client().Get(ctx, "books/", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	snap := m.MetricsSnapshot()
	if snap.Counters[MetricRequestTotal] != 2 || snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	var samples uint64
	for _, v := range snap.Histograms[MetricRequestLatency] {
		samples += v
	}
	if samples != 2 {
		t.Fatalf("expected 2 latency samples, got %d", samples)
	}
}
