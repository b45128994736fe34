package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string, tenantID uuid.NullUUID) (types.User, error)
	List(ctx context.Context, tenantID uuid.UUID, filter types.UserFilter, page types.Page) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	tenants  TenantRepository
	validate *Validator
	events   *Events
}

func NewUserService(repo UserRepository, tenants TenantRepository, validate *Validator, events *Events) *UserService {
	return &UserService{repo: repo, tenants: tenants, validate: validate, events: events}
}

// Create adds a user to tenantID. The caller must administer the tenant, and
// the super_admin role can never be granted inside a tenant.
func (s *UserService) Create(ctx context.Context, p types.Principal, tenantID uuid.UUID, in types.NewUser) (types.User, error) {
	if !p.CanAdminister(tenantID) {
		return types.User{}, ErrForbidden
	}
	if in.Role == "" {
		in.Role = types.RoleUser
	}
	if in.Role == types.RoleSuperAdmin {
		return types.User{}, invalid("role super_admin cannot belong to a tenant")
	}
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return types.User{}, err
	}

	user, err := s.build(in, uuid.NullUUID{UUID: tenantID, Valid: true})
	if err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.events.emit(ctx, types.EventUserCreated, created.TenantID, p.UserID, created)
	return created, nil
}

// CreateSuperAdmin creates a tenant-less super-admin. It is reserved for
// operator tooling and performs no principal check.
func (s *UserService) CreateSuperAdmin(ctx context.Context, in types.NewUser) (types.User, error) {
	in.Role = types.RoleSuperAdmin
	user, err := s.build(in, uuid.NullUUID{})
	if err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.events.emit(ctx, types.EventUserCreated, uuid.NullUUID{}, uuid.Nil, created)
	return created, nil
}

func (s *UserService) build(in types.NewUser, tenantID uuid.NullUUID) (types.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return types.User{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}
	user := types.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		TenantID:     tenantID,
	}
	if err := s.validate.Struct(user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Get returns a user of tenantID. Users of other tenants are reported as
// not found.
func (s *UserService) Get(ctx context.Context, p types.Principal, tenantID, userID uuid.UUID) (types.User, error) {
	if !p.CanRead(tenantID) {
		return types.User{}, ErrForbidden
	}
	return s.inTenant(ctx, tenantID, userID)
}

// GetByID loads a user without any tenant scoping.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, p types.Principal, tenantID uuid.UUID, filter types.UserFilter, page types.Page) ([]types.User, int, error) {
	if !p.CanRead(tenantID) {
		return nil, 0, ErrForbidden
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, 0, invalid("role must be one of: super_admin tenant_admin user")
	}
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, tenantID, filter, page)
}

// Update applies a partial update. Members may edit their own profile and
// password; role and active flag changes require a tenant admin.
func (s *UserService) Update(ctx context.Context, p types.Principal, tenantID, userID uuid.UUID, update types.UserUpdate) (types.User, error) {
	if !p.CanRead(tenantID) {
		return types.User{}, ErrForbidden
	}
	admin := p.CanAdminister(tenantID)
	if !admin && p.UserID != userID {
		return types.User{}, ErrForbidden
	}
	if !admin && (update.Role != nil || update.IsActive != nil) {
		return types.User{}, ErrForbidden
	}
	if update.Role != nil && *update.Role == types.RoleSuperAdmin {
		return types.User{}, invalid("role super_admin cannot belong to a tenant")
	}

	user, err := s.inTenant(ctx, tenantID, userID)
	if err != nil {
		return types.User{}, err
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Email != nil {
		user.Email = normalizeEmail(*update.Email)
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Password != nil {
		if !validPassword(*update.Password) {
			return types.User{}, invalid("%s", passwordRule("password"))
		}
		hash, err := hashPassword(*update.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}
	if err := s.validate.Struct(user); err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.events.emit(ctx, types.EventUserUpdated, updated.TenantID, p.UserID, updated)
	return updated, nil
}

func (s *UserService) inTenant(ctx context.Context, tenantID, userID uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if !user.TenantID.Valid || user.TenantID.UUID != tenantID {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalid("%s", passwordRule("password"))
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
