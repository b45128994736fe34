package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tenantdesk/apiserver/internal/handlers"
	"github.com/tenantdesk/apiserver/internal/metrics"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/internal/store/inmem"
	"github.com/tenantdesk/apiserver/types"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeIdempotency struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{claimed: make(map[string]bool)}
}

func (f *fakeIdempotency) Claim(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	k := scope + ":" + key
	if f.claimed[k] {
		return false, nil
	}
	f.claimed[k] = true
	return true, nil
}

func (f *fakeIdempotency) Release(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	delete(f.claimed, k)
	f.released = append(f.released, k)
	return nil
}

type stubAuth struct{ user types.User }

func (s stubAuth) Authenticate(context.Context, string) (types.User, error) {
	return s.user, nil
}

type testApp struct {
	db     *inmem.DB
	auth   *services.AuthService
	router http.Handler
}

func newTestApp(t *testing.T, deps RouterDeps) *testApp {
	t.Helper()

	db := inmem.New()
	validate := services.NewValidator()
	auth := services.NewAuthService(db.Users(), db.Tenants(), validate, nil, "server-secret", time.Hour)

	deps.Log = zerolog.Nop()
	deps.Auth = auth
	deps.Services = handlers.TenantServices{
		Tenants:  services.NewTenantService(db.Tenants(), validate, nil),
		Users:    services.NewUserService(db.Users(), db.Tenants(), validate, nil),
		Projects: services.NewProjectService(db.Projects(), db.Tenants(), validate, nil),
		Exports:  services.NewExportService(db.Tenants(), db.Users(), db.Projects(), nil),
	}
	return &testApp{db: db, auth: auth, router: NewRouter(deps)}
}

func (a *testApp) seedMember(t *testing.T) (types.Tenant, string) {
	t.Helper()
	ctx := context.Background()
	tenant, err := a.db.Tenants().Create(ctx, types.Tenant{Name: "Acme", Slug: "acme", IsActive: true})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	user, err := a.db.Users().Create(ctx, types.User{
		FullName:     "Member",
		Email:        "member@acme.test",
		PasswordHash: "x",
		Role:         types.RoleUser,
		IsActive:     true,
		TenantID:     uuid.NullUUID{UUID: tenant.ID, Valid: true},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := a.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tenant, token
}

func (a *testApp) request(method, path, token, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, RouterDeps{})
	rr := app.request(http.MethodGet, "/healthz", "", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	app := newTestApp(t, RouterDeps{DB: fakePinger{}})
	if rr := app.request(http.MethodGet, "/readyz", "", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	app = newTestApp(t, RouterDeps{DB: fakePinger{err: errors.New("connection refused")}})
	if rr := app.request(http.MethodGet, "/readyz", "", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	app := newTestApp(t, RouterDeps{Metrics: metrics.NewCollector(reg), Gatherer: reg})

	app.request(http.MethodGet, "/api/tenants/", "", "", nil)

	rr := app.request(http.MethodGet, "/metrics", "", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "tenantdesk_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, RouterDeps{})
	rr := app.request(http.MethodGet, "/api/tenants/", "", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRateLimitPerCaller(t *testing.T) {
	limiter := NewRateLimiter(1, 2, nil)
	defer limiter.Stop()

	app := newTestApp(t, RouterDeps{Limiter: limiter})
	tenant, token := app.seedMember(t)
	path := "/api/tenants/" + tenant.ID.String()

	for i := 0; i < 2; i++ {
		if rr := app.request(http.MethodGet, path, token, "", nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := app.request(http.MethodGet, path, token, "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	// unauthenticated requests are rejected by the gate, not the limiter
	if rr := app.request(http.MethodGet, path, "", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(60, 1, nil)
	defer limiter.Stop()

	limiter.get(uuid.New())
	limiter.get(uuid.New())
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 tracked callers, got %d", limiter.Len())
	}

	limiter.cleanup(time.Now(), time.Minute)
	if limiter.Len() != 2 {
		t.Fatalf("fresh callers should be kept")
	}

	limiter.cleanup(time.Now().Add(2*time.Minute), time.Minute)
	if limiter.Len() != 0 {
		t.Fatalf("expected idle callers to be dropped, got %d", limiter.Len())
	}
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	store := newFakeIdempotency()
	reg := metrics.NewRegistry()

	app := newTestApp(t, RouterDeps{Idempotency: store, Metrics: metrics.NewCollector(reg), Gatherer: reg})
	tenant, token := app.seedMember(t)
	path := "/api/tenants/" + tenant.ID.String() + "/projects/"
	header := map[string]string{"Idempotency-Key": "create-roadmap"}

	rr := app.request(http.MethodPost, path, token, `{"name":"Roadmap"}`, header)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = app.request(http.MethodPost, path, token, `{"name":"Roadmap"}`, header)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var body handlers.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body.Error == "" {
		t.Fatalf("expected error body, got %v", err)
	}

	projects, total, err := app.db.Projects().List(context.Background(), tenant.ID, types.ProjectFilter{}, types.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if total != 1 || len(projects) != 1 {
		t.Fatalf("expected exactly one project, got %d", total)
	}

	if rr := app.request(http.MethodGet, "/metrics", "", "", nil); !strings.Contains(rr.Body.String(), "tenantdesk_idempotency_replays_total 1") {
		t.Fatalf("expected one replay to be counted")
	}

	// a different key is a different request
	header["Idempotency-Key"] = "create-roadmap-2"
	if rr := app.request(http.MethodPost, path, token, `{"name":"Roadmap 2"}`, header); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeIdempotency()
	user := types.User{ID: uuid.New(), Role: types.RoleUser, IsActive: true}

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := handlers.RequireAuth(stubAuth{user: user})(Idempotency(store, nil)(next))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set("Idempotency-Key", "retry-me")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("request %d: expected 500, got %d", i, rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
	if len(store.released) != 2 {
		t.Fatalf("expected key to be released twice, got %v", store.released)
	}
}

func TestIdempotencyPassThrough(t *testing.T) {
	user := types.User{ID: uuid.New(), Role: types.RoleUser, IsActive: true}
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	cases := []struct {
		name   string
		store  *fakeIdempotency
		method string
		key    string
		want   int
	}{
		{name: "get ignores key", store: newFakeIdempotency(), method: http.MethodGet, key: "k", want: http.StatusCreated},
		{name: "post without key", store: newFakeIdempotency(), method: http.MethodPost, key: "", want: http.StatusCreated},
		{name: "store unavailable", store: &fakeIdempotency{claimed: map[string]bool{}, err: errors.New("dial tcp")}, method: http.MethodPost, key: "k", want: http.StatusCreated},
		{name: "key too long", store: newFakeIdempotency(), method: http.MethodPost, key: strings.Repeat("k", 256), want: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := handlers.RequireAuth(stubAuth{user: user})(Idempotency(tc.store, nil)(next))
			req := httptest.NewRequest(tc.method, "/", nil)
			req.Header.Set("Authorization", "Bearer token")
			if tc.key != "" {
				req.Header.Set("Idempotency-Key", tc.key)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestIdempotencyReleasesKeyOnPanic(t *testing.T) {
	store := newFakeIdempotency()
	user := types.User{ID: uuid.New(), Role: types.RoleUser, IsActive: true}

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := middleware.Recoverer(handlers.RequireAuth(stubAuth{user: user})(Idempotency(store, nil)(next)))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Idempotency-Key", "panics")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recoverer, got %d", rr.Code)
	}
	if len(store.released) != 1 {
		t.Fatalf("expected key to be released, got %v", store.released)
	}
	claimed, err := store.Claim(context.Background(), user.ID.String(), "panics")
	if err != nil || !claimed {
		t.Fatalf("expected key to be claimable again, got %v %v", claimed, err)
	}
}
