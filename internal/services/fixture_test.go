package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tenantdesk/apiserver/internal/store/inmem"
	"github.com/tenantdesk/apiserver/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	var event types.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	p.events = append(p.events, event)
	return event.ID.String(), nil
}

func (p *recordingPublisher) eventTypes() []types.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db       *inmem.DB
	pub      *recordingPublisher
	tenants  *TenantService
	users    *UserService
	projects *ProjectService
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := inmem.New()
	pub := &recordingPublisher{}
	validate := NewValidator()
	events := NewEvents(pub, "test.events", zerolog.Nop())

	return &fixture{
		db:       db,
		pub:      pub,
		tenants:  NewTenantService(db.Tenants(), validate, events),
		users:    NewUserService(db.Users(), db.Tenants(), validate, events),
		projects: NewProjectService(db.Projects(), db.Tenants(), validate, events),
		auth:     NewAuthService(db.Users(), db.Tenants(), validate, events, "test-secret", 0),
	}
}

func (f *fixture) seedTenant(t *testing.T, slug string) types.Tenant {
	t.Helper()
	tenant, err := f.db.Tenants().Create(context.Background(), types.Tenant{Name: slug, Slug: slug, IsActive: true})
	if err != nil {
		t.Fatalf("seed tenant %s: %v", slug, err)
	}
	return tenant
}

// seedUser inserts a user directly. tenantID uuid.Nil seeds a super-admin.
func (f *fixture) seedUser(t *testing.T, tenantID uuid.UUID, email string, role types.Role) types.Principal {
	t.Helper()
	user, err := f.db.Users().Create(context.Background(), types.User{
		FullName:     email,
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
		TenantID:     uuid.NullUUID{UUID: tenantID, Valid: tenantID != uuid.Nil},
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return types.PrincipalFromUser(user)
}

func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
