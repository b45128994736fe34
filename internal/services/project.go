package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/types"
)

// ProjectRepository defines persistence operations for projects. Every
// method is scoped to a tenant.
type ProjectRepository interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (types.Project, error)
	List(ctx context.Context, tenantID uuid.UUID, filter types.ProjectFilter, page types.Page) ([]types.Project, int, error)
	Create(ctx context.Context, project types.Project) (types.Project, error)
	Update(ctx context.Context, project types.Project) (types.Project, error)
}

// ProjectService encapsulates project use-cases.
type ProjectService struct {
	repo     ProjectRepository
	tenants  TenantRepository
	validate *Validator
	events   *Events
}

func NewProjectService(repo ProjectRepository, tenants TenantRepository, validate *Validator, events *Events) *ProjectService {
	return &ProjectService{repo: repo, tenants: tenants, validate: validate, events: events}
}

// Create adds a project to tenantID on behalf of the caller, who becomes its
// creator. Status defaults to active.
func (s *ProjectService) Create(ctx context.Context, p types.Principal, tenantID uuid.UUID, in types.NewProject) (types.Project, error) {
	if !p.CanRead(tenantID) {
		return types.Project{}, ErrForbidden
	}
	if in.Status == "" {
		in.Status = types.ProjectActive
	}

	project := types.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      in.Status,
		TenantID:    tenantID,
		CreatedByID: p.UserID,
	}
	if err := s.validate.Struct(project); err != nil {
		return types.Project{}, err
	}
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return types.Project{}, err
	}

	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return types.Project{}, err
	}
	s.events.emit(ctx, types.EventProjectCreated, tenantRef(created.TenantID), p.UserID, created)
	return created, nil
}

func (s *ProjectService) Get(ctx context.Context, p types.Principal, tenantID, id uuid.UUID) (types.Project, error) {
	if !p.CanRead(tenantID) {
		return types.Project{}, ErrForbidden
	}
	return s.repo.Get(ctx, tenantID, id)
}

func (s *ProjectService) List(ctx context.Context, p types.Principal, tenantID uuid.UUID, filter types.ProjectFilter, page types.Page) ([]types.Project, int, error) {
	if !p.CanRead(tenantID) {
		return nil, 0, ErrForbidden
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, invalid("status must be one of: active archived completed")
	}
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, tenantID, filter, page)
}

// Update applies a partial update. Tenant admins may edit any project of
// their tenant, members only the projects they created. A project never
// moves between tenants.
func (s *ProjectService) Update(ctx context.Context, p types.Principal, tenantID, id uuid.UUID, update types.ProjectUpdate) (types.Project, error) {
	if !p.CanRead(tenantID) {
		return types.Project{}, ErrForbidden
	}
	if update.TenantID != nil && *update.TenantID != tenantID {
		return types.Project{}, invalid("tenant_id cannot be changed")
	}

	project, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return types.Project{}, err
	}
	if !p.CanAdminister(tenantID) && project.CreatedByID != p.UserID {
		return types.Project{}, ErrForbidden
	}

	if update.Name != nil {
		project.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		project.Description = update.Description
	}
	if update.Status != nil {
		project.Status = *update.Status
	}
	if err := s.validate.Struct(project); err != nil {
		return types.Project{}, err
	}

	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return types.Project{}, err
	}
	s.events.emit(ctx, types.EventProjectUpdated, tenantRef(updated.TenantID), p.UserID, updated)
	return updated, nil
}
