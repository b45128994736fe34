package types

import "github.com/google/uuid"

// Principal is the authenticated caller attached to a request by the auth gate.
type Principal struct {
	UserID   uuid.UUID
	Role     Role
	TenantID uuid.NullUUID
}

// PrincipalFromUser builds the principal for an authenticated user.
func PrincipalFromUser(u User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, TenantID: u.TenantID}
}

// IsSuperAdmin reports whether the principal may act across tenants.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// MemberOf reports whether the principal belongs to tenantID.
func (p Principal) MemberOf(tenantID uuid.UUID) bool {
	return p.TenantID.Valid && p.TenantID.UUID == tenantID
}

// CanRead reports whether the principal may read data of tenantID.
func (p Principal) CanRead(tenantID uuid.UUID) bool {
	return p.IsSuperAdmin() || p.MemberOf(tenantID)
}

// CanAdminister reports whether the principal may manage tenantID.
func (p Principal) CanAdminister(tenantID uuid.UUID) bool {
	return p.IsSuperAdmin() || (p.Role == RoleTenantAdmin && p.MemberOf(tenantID))
}
