package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
)

func TestProjectService_Create_DefaultsToActive(t *testing.T) {
	f := newFixture(t)
	acme := f.seedTenant(t, "acme")
	member := f.seedUser(t, acme.ID, "member@acme.test", types.RoleUser)

	project, err := f.projects.Create(context.Background(), member, acme.ID, types.NewProject{Name: "Website"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if project.Status != types.ProjectActive {
		t.Fatalf("expected status active, got %q", project.Status)
	}
	if project.TenantID != acme.ID || project.CreatedByID != member.UserID {
		t.Fatalf("unexpected ownership %+v", project)
	}
	if project.Description != nil {
		t.Fatalf("expected no description, got %q", *project.Description)
	}
}

func TestProjectService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	acme := f.seedTenant(t, "acme")
	root := f.seedUser(t, uuid.Nil, "root@example.com", types.RoleSuperAdmin)
	member := f.seedUser(t, acme.ID, "member@acme.test", types.RoleUser)

	tests := []struct {
		name      string
		principal types.Principal
		tenantID  uuid.UUID
		in        types.NewProject
	}{
		{"missing name", member, acme.ID, types.NewProject{Name: "  "}},
		{"unknown status", member, acme.ID, types.NewProject{Name: "P", Status: "paused"}},
		{"missing tenant", root, uuid.Nil, types.NewProject{Name: "P"}},
		{"missing creator", types.Principal{Role: types.RoleSuperAdmin}, acme.ID, types.NewProject{Name: "P"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.projects.Create(context.Background(), tt.principal, tt.tenantID, tt.in)
			assertErr(t, err, store.ErrValidation)
		})
	}
}

func TestProjectService_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedTenant(t, "acme")
	globex := f.seedTenant(t, "globex")
	root := f.seedUser(t, uuid.Nil, "root@example.com", types.RoleSuperAdmin)
	acmeAdmin := f.seedUser(t, acme.ID, "admin@acme.test", types.RoleTenantAdmin)
	globexAdmin := f.seedUser(t, globex.ID, "admin@globex.test", types.RoleTenantAdmin)

	project, err := f.projects.Create(ctx, acmeAdmin, acme.ID, types.NewProject{Name: "Internal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.projects.Get(ctx, globexAdmin, acme.ID, project.ID)
	assertErr(t, err, ErrForbidden)

	_, err = f.projects.Create(ctx, globexAdmin, acme.ID, types.NewProject{Name: "Sneaky"})
	assertErr(t, err, ErrForbidden)

	_, _, err = f.projects.List(ctx, globexAdmin, acme.ID, types.ProjectFilter{}, types.Page{Limit: 10})
	assertErr(t, err, ErrForbidden)

	// the tenant in the path scopes the lookup even for a super-admin
	_, err = f.projects.Get(ctx, root, globex.ID, project.ID)
	assertErr(t, err, store.ErrNotFound)

	got, err := f.projects.Get(ctx, root, acme.ID, project.ID)
	if err != nil {
		t.Fatalf("super admin get: %v", err)
	}
	if got.ID != project.ID {
		t.Fatalf("unexpected project %+v", got)
	}
}

func TestProjectService_List_StatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedTenant(t, "acme")
	member := f.seedUser(t, acme.ID, "member@acme.test", types.RoleUser)

	for _, in := range []types.NewProject{
		{Name: "A"},
		{Name: "B", Status: types.ProjectArchived},
		{Name: "C", Status: types.ProjectCompleted},
	} {
		if _, err := f.projects.Create(ctx, member, acme.ID, in); err != nil {
			t.Fatalf("create %s: %v", in.Name, err)
		}
	}

	archived := types.ProjectArchived
	projects, total, err := f.projects.List(ctx, member, acme.ID, types.ProjectFilter{Status: &archived}, types.Page{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || projects[0].Name != "B" {
		t.Fatalf("unexpected archived projects %+v", projects)
	}

	bad := types.ProjectStatus("deleted")
	_, _, err = f.projects.List(ctx, member, acme.ID, types.ProjectFilter{Status: &bad}, types.Page{Limit: 10})
	assertErr(t, err, store.ErrValidation)
}

func TestProjectService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.seedTenant(t, "acme")
	globex := f.seedTenant(t, "globex")
	admin := f.seedUser(t, acme.ID, "admin@acme.test", types.RoleTenantAdmin)
	owner := f.seedUser(t, acme.ID, "owner@acme.test", types.RoleUser)
	other := f.seedUser(t, acme.ID, "other@acme.test", types.RoleUser)

	project, err := f.projects.Create(ctx, owner, acme.ID, types.NewProject{Name: "Mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := types.ProjectCompleted
	updated, err := f.projects.Update(ctx, owner, acme.ID, project.ID, types.ProjectUpdate{Status: &done})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Status != types.ProjectCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	name := "Taken over"
	_, err = f.projects.Update(ctx, other, acme.ID, project.ID, types.ProjectUpdate{Name: &name})
	assertErr(t, err, ErrForbidden)

	if _, err := f.projects.Update(ctx, admin, acme.ID, project.ID, types.ProjectUpdate{Name: &name}); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	move := globex.ID
	_, err = f.projects.Update(ctx, admin, acme.ID, project.ID, types.ProjectUpdate{TenantID: &move})
	assertErr(t, err, store.ErrValidation)

	same := acme.ID
	if _, err := f.projects.Update(ctx, admin, acme.ID, project.ID, types.ProjectUpdate{TenantID: &same}); err != nil {
		t.Fatalf("update naming the same tenant: %v", err)
	}

	bad := types.ProjectStatus("paused")
	_, err = f.projects.Update(ctx, admin, acme.ID, project.ID, types.ProjectUpdate{Status: &bad})
	assertErr(t, err, store.ErrValidation)

	_, err = f.projects.Update(ctx, admin, acme.ID, uuid.New(), types.ProjectUpdate{Name: &name})
	assertErr(t, err, store.ErrNotFound)

	got := f.pub.eventTypes()
	want := []types.EventType{types.EventProjectCreated, types.EventProjectUpdated, types.EventProjectUpdated, types.EventProjectUpdated}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestProjectService_UnknownTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.seedUser(t, uuid.Nil, "root@example.com", types.RoleSuperAdmin)
	missing := uuid.New()

	_, err := f.projects.Create(ctx, root, missing, types.NewProject{Name: "Orphan"})
	assertErr(t, err, store.ErrNotFound)

	_, _, err = f.projects.List(ctx, root, missing, types.ProjectFilter{}, types.Page{Limit: 10})
	assertErr(t, err, store.ErrNotFound)

	_, _, err = f.users.List(ctx, root, missing, types.UserFilter{}, types.Page{Limit: 10})
	assertErr(t, err, store.ErrNotFound)
}
