package types

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization. Users and projects are
// partitioned by tenant ID.
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,max=200"`
	Slug      string    `json:"slug" db:"slug" validate:"required,slug"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TenantUpdate carries the mutable tenant fields. Nil fields are left unchanged.
type TenantUpdate struct {
	Name     *string `json:"name,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Page is the offset window applied to list queries.
type Page struct {
	Offset int
	Limit  int
}
