package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level of a user.
type Role string

const (
	// RoleSuperAdmin operates across tenants and has no tenant of its own.
	RoleSuperAdmin Role = "super_admin"
	// RoleTenantAdmin administers a single tenant.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleUser is a regular member of a tenant.
	RoleUser Role = "user"
)

// Roles lists every valid role.
var Roles = []Role{RoleSuperAdmin, RoleTenantAdmin, RoleUser}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// User represents an account belonging to a tenant, or a super-admin when
// TenantID is not set.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name" validate:"required,max=200"`

	// Email is unique per tenant. It is stored trimmed and lowercased.
	Email string `json:"email" db:"email" validate:"required,email,max=320"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash" validate:"required"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role" validate:"required,oneof=super_admin tenant_admin user"`

	// IsActive is false for deactivated accounts, which can no longer authenticate.
	IsActive bool `json:"is_active" db:"is_active"`

	// TenantID is the owning tenant. It is null for super-admins.
	TenantID uuid.NullUUID `json:"tenant_id" db:"tenant_id"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserFilter narrows user listings within a tenant.
type UserFilter struct {
	Role   *Role
	Active *bool
}

// UserUpdate carries the mutable user fields. Nil fields are left unchanged.
type UserUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// NewUser is the input for creating an account. Role defaults to user.
type NewUser struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,password"`
	Role     Role   `json:"role"`
}
