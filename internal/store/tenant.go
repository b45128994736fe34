package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tenantdesk/apiserver/types"
)

const tenantColumns = `id, name, slug, is_active, created_at, updated_at`

const insertTenantQuery = `
	INSERT INTO tenants (id, name, slug, is_active, created_at, updated_at)
	VALUES (:id, :name, :slug, :is_active, :created_at, :updated_at)`

// TenantRepository handles persistence for tenants.
type TenantRepository struct {
	db *sqlx.DB
}

func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) List(ctx context.Context, page types.Page) ([]types.Tenant, int, error) {
	page = normalizePage(page)

	total, err := count(ctx, r.db, "tenants", sq.And{})
	if err != nil {
		return nil, 0, err
	}

	query, args, err := psql.Select(tenantColumns).
		From("tenants").
		OrderBy("created_at", "id").
		Offset(uint64(page.Offset)).
		Limit(uint64(page.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	tenants := make([]types.Tenant, 0, page.Limit)
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (types.Tenant, error) {
	const query = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	var tenant types.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return types.Tenant{}, translate(err)
	}
	return tenant, nil
}

func (r *TenantRepository) Create(ctx context.Context, tenant types.Tenant) (types.Tenant, error) {
	tenant = stampTenant(tenant)
	if _, err := r.db.NamedExecContext(ctx, insertTenantQuery, tenant); err != nil {
		return types.Tenant{}, translate(err)
	}
	return tenant, nil
}

// CreateWithAdmin creates a tenant and its first administrator in one
// transaction. The admin's TenantID is set to the new tenant.
func (r *TenantRepository) CreateWithAdmin(ctx context.Context, tenant types.Tenant, admin types.User) (types.Tenant, types.User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Tenant{}, types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	tenant = stampTenant(tenant)
	if _, err := tx.NamedExecContext(ctx, insertTenantQuery, tenant); err != nil {
		return types.Tenant{}, types.User{}, translate(err)
	}

	admin.TenantID = uuid.NullUUID{UUID: tenant.ID, Valid: true}
	admin = stampUser(admin)
	if _, err := tx.NamedExecContext(ctx, insertUserQuery, admin); err != nil {
		return types.Tenant{}, types.User{}, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return types.Tenant{}, types.User{}, err
	}
	return tenant, admin, nil
}

func (r *TenantRepository) Update(ctx context.Context, tenant types.Tenant) (types.Tenant, error) {
	tenant.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE tenants
		SET name = :name,
			slug = :slug,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, tenant)
	if err != nil {
		return types.Tenant{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Tenant{}, err
	}
	if affected == 0 {
		return types.Tenant{}, ErrNotFound
	}
	return tenant, nil
}

func stampTenant(tenant types.Tenant) types.Tenant {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	return tenant
}
