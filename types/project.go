package types

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectArchived, ProjectCompleted:
		return true
	}
	return false
}

// Project is a unit of work owned by exactly one tenant.
type Project struct {
	// ID is the unique identifier of the project.
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the human-readable project name.
	Name string `json:"name" db:"name" validate:"required,max=200"`

	// Description is optional long-form text.
	Description *string `json:"description" db:"description"`

	// Status defaults to active when empty.
	Status ProjectStatus `json:"status" db:"status" validate:"required,oneof=active archived completed"`

	// TenantID is the owning tenant and never changes after creation.
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id" validate:"required"`

	// CreatedByID references the user who created the project.
	CreatedByID uuid.UUID `json:"created_by_id" db:"created_by" validate:"required"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectFilter narrows project listings within a tenant.
type ProjectFilter struct {
	Status      *ProjectStatus
	CreatedByID *uuid.UUID
}

// NewProject is the input for creating a project. The tenant and creator
// come from the request path and the authenticated caller.
type NewProject struct {
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      ProjectStatus `json:"status,omitempty"`
}

// ProjectUpdate carries the mutable project fields. Nil fields are left unchanged.
// TenantID is accepted only so that an attempt to move a project can be rejected.
type ProjectUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	TenantID    *uuid.UUID     `json:"tenant_id,omitempty"`
}
