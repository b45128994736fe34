package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/internal/store/inmem"
	"github.com/tenantdesk/apiserver/types"
)

type testEnv struct {
	db     *inmem.DB
	auth   *services.AuthService
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := inmem.New()
	validate := services.NewValidator()
	auth := services.NewAuthService(db.Users(), db.Tenants(), validate, nil, "handler-secret", 0)
	svc := TenantServices{
		Tenants:  services.NewTenantService(db.Tenants(), validate, nil),
		Users:    services.NewUserService(db.Users(), db.Tenants(), validate, nil),
		Projects: services.NewProjectService(db.Projects(), db.Tenants(), validate, nil),
		Exports:  services.NewExportService(db.Tenants(), db.Users(), db.Projects(), nil),
	}

	gate := RequireAuth(auth)
	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, auth, gate)
	})
	router.Route("/api/tenants", func(r chi.Router) {
		TenantRouter(r, svc, gate)
	})

	return &testEnv{db: db, auth: auth, router: router}
}

func (e *testEnv) seedTenant(t *testing.T, slug string) types.Tenant {
	t.Helper()
	tenant, err := e.db.Tenants().Create(context.Background(), types.Tenant{Name: slug, Slug: slug, IsActive: true})
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

// seedUser inserts a user and returns it with a valid token. tenantID
// uuid.Nil seeds a super-admin.
func (e *testEnv) seedUser(t *testing.T, tenantID uuid.UUID, email string, role types.Role) (types.User, string) {
	t.Helper()
	user, err := e.db.Users().Create(context.Background(), types.User{
		FullName:     email,
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
		TenantID:     uuid.NullUUID{UUID: tenantID, Valid: tenantID != uuid.Nil},
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := e.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
