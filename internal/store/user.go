package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tenantdesk/apiserver/types"
)

const userColumns = `id, full_name, email, password_hash, role, is_active, tenant_id, created_at, updated_at`

const insertUserQuery = `
	INSERT INTO users (id, full_name, email, password_hash, role, is_active, tenant_id, created_at, updated_at)
	VALUES (:id, :full_name, :email, :password_hash, :role, :is_active, :tenant_id, :created_at, :updated_at)`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user types.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// GetByEmail looks a user up inside one tenant. A null tenantID searches the
// super-admins, who have no tenant.
func (r *UserRepository) GetByEmail(ctx context.Context, email string, tenantID uuid.NullUUID) (types.User, error) {
	where := sq.And{sq.Eq{"email": email}}
	if tenantID.Valid {
		where = append(where, sq.Eq{"tenant_id": tenantID.UUID.String()})
	} else {
		where = append(where, sq.Eq{"tenant_id": nil})
	}

	query, args, err := psql.Select(userColumns).From("users").Where(where).ToSql()
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, tenantID uuid.UUID, filter types.UserFilter, page types.Page) ([]types.User, int, error) {
	page = normalizePage(page)

	where := sq.And{sq.Eq{"tenant_id": tenantID.String()}}
	if filter.Role != nil {
		where = append(where, sq.Eq{"role": string(*filter.Role)})
	}
	if filter.Active != nil {
		where = append(where, sq.Eq{"is_active": *filter.Active})
	}

	total, err := count(ctx, r.db, "users", where)
	if err != nil {
		return nil, 0, translate(err)
	}

	query, args, err := psql.Select(userColumns).
		From("users").
		Where(where).
		OrderBy("created_at", "id").
		Offset(uint64(page.Offset)).
		Limit(uint64(page.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	users := make([]types.User, 0, page.Limit)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, translate(err)
	}
	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user = stampUser(user)
	if _, err := r.db.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// Update writes every mutable column. The tenant of a user never changes.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET full_name = :full_name,
			email = :email,
			password_hash = :password_hash,
			role = :role,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return types.User{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func stampUser(user types.User) types.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return user
}
