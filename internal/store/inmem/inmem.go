// Package inmem provides in-memory repositories that enforce the same
// uniqueness, enum and reference constraints as the postgres schema. They
// back service and handler tests.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
)

// DB holds all tables behind one lock so cross-table constraints hold.
type DB struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]types.Tenant
	users    map[uuid.UUID]types.User
	projects map[uuid.UUID]types.Project
	failure  error
	now      func() time.Time
}

func New() *DB {
	return &DB{
		tenants:  make(map[uuid.UUID]types.Tenant),
		users:    make(map[uuid.UUID]types.User),
		projects: make(map[uuid.UUID]types.Project),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Tenants() *TenantRepository   { return &TenantRepository{db: db} }
func (db *DB) Users() *UserRepository       { return &UserRepository{db: db} }
func (db *DB) Projects() *ProjectRepository { return &ProjectRepository{db: db} }

// Fail makes every subsequent call on the DB return err. Pass nil to reset.
func (db *DB) Fail(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failure = err
}

func page(total int, p types.Page) (int, int) {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, fmt.Sprintf(format, args...))
}

func conflict(constraint string) error {
	return fmt.Errorf("%w: %s", store.ErrConflict, constraint)
}

// TenantRepository is the in-memory counterpart of store.TenantRepository.
type TenantRepository struct {
	db *DB
}

func (r *TenantRepository) List(_ context.Context, p types.Page) ([]types.Tenant, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return nil, 0, r.db.failure
	}

	all := make([]types.Tenant, 0, len(r.db.tenants))
	for _, t := range r.db.tenants {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start, end := page(len(all), p)
	return all[start:end], len(all), nil
}

func (r *TenantRepository) Get(_ context.Context, id uuid.UUID) (types.Tenant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return types.Tenant{}, r.db.failure
	}

	t, ok := r.db.tenants[id]
	if !ok {
		return types.Tenant{}, store.ErrNotFound
	}
	return t, nil
}

func (r *TenantRepository) Create(_ context.Context, tenant types.Tenant) (types.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.Tenant{}, r.db.failure
	}
	return r.db.insertTenant(tenant)
}

func (r *TenantRepository) CreateWithAdmin(_ context.Context, tenant types.Tenant, admin types.User) (types.Tenant, types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.Tenant{}, types.User{}, r.db.failure
	}

	created, err := r.db.insertTenant(tenant)
	if err != nil {
		return types.Tenant{}, types.User{}, err
	}
	admin.TenantID = uuid.NullUUID{UUID: created.ID, Valid: true}
	user, err := r.db.insertUser(admin)
	if err != nil {
		delete(r.db.tenants, created.ID)
		return types.Tenant{}, types.User{}, err
	}
	return created, user, nil
}

func (r *TenantRepository) Update(_ context.Context, tenant types.Tenant) (types.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.Tenant{}, r.db.failure
	}

	existing, ok := r.db.tenants[tenant.ID]
	if !ok {
		return types.Tenant{}, store.ErrNotFound
	}
	if err := r.db.checkTenant(tenant); err != nil {
		return types.Tenant{}, err
	}
	tenant.CreatedAt = existing.CreatedAt
	tenant.UpdatedAt = r.db.now()
	r.db.tenants[tenant.ID] = tenant
	return tenant, nil
}

func (db *DB) insertTenant(tenant types.Tenant) (types.Tenant, error) {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if _, exists := db.tenants[tenant.ID]; exists {
		return types.Tenant{}, conflict("tenants_pkey")
	}
	if err := db.checkTenant(tenant); err != nil {
		return types.Tenant{}, err
	}
	now := db.now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	db.tenants[tenant.ID] = tenant
	return tenant, nil
}

func (db *DB) checkTenant(tenant types.Tenant) error {
	if tenant.Name == "" {
		return validation("name is required")
	}
	if tenant.Slug == "" {
		return validation("slug is required")
	}
	for id, other := range db.tenants {
		if id != tenant.ID && other.Slug == tenant.Slug {
			return conflict("tenants_slug_key")
		}
	}
	return nil
}

// UserRepository is the in-memory counterpart of store.UserRepository.
type UserRepository struct {
	db *DB
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return types.User{}, r.db.failure
	}

	u, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string, tenantID uuid.NullUUID) (types.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return types.User{}, r.db.failure
	}

	for _, u := range r.db.users {
		if u.Email == email && u.TenantID == tenantID {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) List(_ context.Context, tenantID uuid.UUID, filter types.UserFilter, p types.Page) ([]types.User, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return nil, 0, r.db.failure
	}

	matched := make([]types.User, 0)
	for _, u := range r.db.users {
		if !u.TenantID.Valid || u.TenantID.UUID != tenantID {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	start, end := page(len(matched), p)
	return matched[start:end], len(matched), nil
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.User{}, r.db.failure
	}
	return r.db.insertUser(user)
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.User{}, r.db.failure
	}

	existing, ok := r.db.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.TenantID = existing.TenantID
	if err := r.db.checkUser(user); err != nil {
		return types.User{}, err
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.db.now()
	r.db.users[user.ID] = user
	return user, nil
}

func (db *DB) insertUser(user types.User) (types.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := db.users[user.ID]; exists {
		return types.User{}, conflict("users_pkey")
	}
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	if err := db.checkUser(user); err != nil {
		return types.User{}, err
	}
	now := db.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	db.users[user.ID] = user
	return user, nil
}

func (db *DB) checkUser(user types.User) error {
	switch {
	case user.FullName == "":
		return validation("full_name is required")
	case user.Email == "":
		return validation("email is required")
	case user.PasswordHash == "":
		return validation("password_hash is required")
	case !user.Role.Valid():
		return validation("invalid input value for enum user_role: %q", user.Role)
	case (user.Role == types.RoleSuperAdmin) != !user.TenantID.Valid:
		return validation("users_super_admin_without_tenant")
	}
	if user.TenantID.Valid {
		if _, ok := db.tenants[user.TenantID.UUID]; !ok {
			return validation("referenced record does not exist (users_tenant_id_fkey)")
		}
	}
	for id, other := range db.users {
		if id != user.ID && other.Email == user.Email && other.TenantID == user.TenantID {
			if user.TenantID.Valid {
				return conflict("users_email_tenant_key")
			}
			return conflict("users_email_global_key")
		}
	}
	return nil
}

// ProjectRepository is the in-memory counterpart of store.ProjectRepository.
type ProjectRepository struct {
	db *DB
}

func (r *ProjectRepository) Get(_ context.Context, tenantID, id uuid.UUID) (types.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return types.Project{}, r.db.failure
	}

	p, ok := r.db.projects[id]
	if !ok || p.TenantID != tenantID {
		return types.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (r *ProjectRepository) List(_ context.Context, tenantID uuid.UUID, filter types.ProjectFilter, p types.Page) ([]types.Project, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if r.db.failure != nil {
		return nil, 0, r.db.failure
	}

	matched := make([]types.Project, 0)
	for _, proj := range r.db.projects {
		if proj.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && proj.Status != *filter.Status {
			continue
		}
		if filter.CreatedByID != nil && proj.CreatedByID != *filter.CreatedByID {
			continue
		}
		matched = append(matched, proj)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	start, end := page(len(matched), p)
	return matched[start:end], len(matched), nil
}

func (r *ProjectRepository) Create(_ context.Context, project types.Project) (types.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.Project{}, r.db.failure
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = types.ProjectActive
	}
	if project.TenantID == uuid.Nil {
		return types.Project{}, validation("tenant_id is required")
	}
	if project.CreatedByID == uuid.Nil {
		return types.Project{}, validation("created_by is required")
	}
	if _, ok := r.db.tenants[project.TenantID]; !ok {
		return types.Project{}, validation("referenced record does not exist (projects_tenant_id_fkey)")
	}
	if _, ok := r.db.users[project.CreatedByID]; !ok {
		return types.Project{}, validation("referenced record does not exist (projects_created_by_fkey)")
	}
	if err := checkProject(project); err != nil {
		return types.Project{}, err
	}

	now := r.db.now()
	project.CreatedAt = now
	project.UpdatedAt = now
	r.db.projects[project.ID] = project
	return project, nil
}

func (r *ProjectRepository) Update(_ context.Context, project types.Project) (types.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failure != nil {
		return types.Project{}, r.db.failure
	}

	existing, ok := r.db.projects[project.ID]
	if !ok || existing.TenantID != project.TenantID {
		return types.Project{}, store.ErrNotFound
	}
	if err := checkProject(project); err != nil {
		return types.Project{}, err
	}
	project.CreatedByID = existing.CreatedByID
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = r.db.now()
	r.db.projects[project.ID] = project
	return project, nil
}

func checkProject(project types.Project) error {
	if project.Name == "" {
		return validation("name is required")
	}
	if !project.Status.Valid() {
		return validation("invalid input value for enum project_status: %q", project.Status)
	}
	return nil
}
