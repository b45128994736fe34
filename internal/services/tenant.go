package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/types"
)

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	List(ctx context.Context, page types.Page) ([]types.Tenant, int, error)
	Get(ctx context.Context, id uuid.UUID) (types.Tenant, error)
	Create(ctx context.Context, tenant types.Tenant) (types.Tenant, error)
	CreateWithAdmin(ctx context.Context, tenant types.Tenant, admin types.User) (types.Tenant, types.User, error)
	Update(ctx context.Context, tenant types.Tenant) (types.Tenant, error)
}

// TenantService encapsulates tenant use-cases.
type TenantService struct {
	repo     TenantRepository
	validate *Validator
	events   *Events
}

func NewTenantService(repo TenantRepository, validate *Validator, events *Events) *TenantService {
	return &TenantService{repo: repo, validate: validate, events: events}
}

// List returns every tenant to a super-admin and only the caller's own
// tenant to anyone else.
func (s *TenantService) List(ctx context.Context, p types.Principal, page types.Page) ([]types.Tenant, int, error) {
	if p.IsSuperAdmin() {
		return s.repo.List(ctx, page)
	}
	if !p.TenantID.Valid {
		return []types.Tenant{}, 0, nil
	}

	tenant, err := s.repo.Get(ctx, p.TenantID.UUID)
	if err != nil {
		return nil, 0, err
	}
	if page.Offset > 0 {
		return []types.Tenant{}, 1, nil
	}
	return []types.Tenant{tenant}, 1, nil
}

func (s *TenantService) Get(ctx context.Context, p types.Principal, id uuid.UUID) (types.Tenant, error) {
	if !p.CanRead(id) {
		return types.Tenant{}, ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new tenant. Only super-admins may create tenants
// directly; everyone else goes through self-registration.
func (s *TenantService) Create(ctx context.Context, p types.Principal, tenant types.Tenant) (types.Tenant, error) {
	if !p.IsSuperAdmin() {
		return types.Tenant{}, ErrForbidden
	}

	tenant.ID = uuid.Nil
	tenant.Name = strings.TrimSpace(tenant.Name)
	tenant.Slug = normalizeSlug(tenant.Slug)
	if err := s.validate.Struct(tenant); err != nil {
		return types.Tenant{}, err
	}

	created, err := s.repo.Create(ctx, tenant)
	if err != nil {
		return types.Tenant{}, err
	}
	s.events.emit(ctx, types.EventTenantCreated, tenantRef(created.ID), p.UserID, created)
	return created, nil
}

// Update applies a partial update. Tenant admins may rename their tenant;
// only super-admins may change its active flag.
func (s *TenantService) Update(ctx context.Context, p types.Principal, id uuid.UUID, update types.TenantUpdate) (types.Tenant, error) {
	if !p.CanAdminister(id) {
		return types.Tenant{}, ErrForbidden
	}
	if update.IsActive != nil && !p.IsSuperAdmin() {
		return types.Tenant{}, ErrForbidden
	}

	tenant, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Tenant{}, err
	}
	if update.Name != nil {
		tenant.Name = strings.TrimSpace(*update.Name)
	}
	if update.Slug != nil {
		tenant.Slug = normalizeSlug(*update.Slug)
	}
	if update.IsActive != nil {
		tenant.IsActive = *update.IsActive
	}
	if err := s.validate.Struct(tenant); err != nil {
		return types.Tenant{}, err
	}

	updated, err := s.repo.Update(ctx, tenant)
	if err != nil {
		return types.Tenant{}, err
	}
	s.events.emit(ctx, types.EventTenantUpdated, tenantRef(updated.ID), p.UserID, updated)
	return updated, nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
