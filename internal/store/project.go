package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tenantdesk/apiserver/types"
)

const projectColumns = `id, name, description, status, tenant_id, created_by, created_at, updated_at`

// ProjectRepository handles persistence for projects. Every query is scoped
// by tenant.
type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (types.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND tenant_id = $2`
	var project types.Project
	if err := r.db.GetContext(ctx, &project, query, id, tenantID); err != nil {
		return types.Project{}, translate(err)
	}
	return project, nil
}

func (r *ProjectRepository) List(ctx context.Context, tenantID uuid.UUID, filter types.ProjectFilter, page types.Page) ([]types.Project, int, error) {
	page = normalizePage(page)

	where := sq.And{sq.Eq{"tenant_id": tenantID.String()}}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	if filter.CreatedByID != nil {
		where = append(where, sq.Eq{"created_by": filter.CreatedByID.String()})
	}

	total, err := count(ctx, r.db, "projects", where)
	if err != nil {
		return nil, 0, translate(err)
	}

	query, args, err := psql.Select(projectColumns).
		From("projects").
		Where(where).
		OrderBy("created_at DESC", "id").
		Offset(uint64(page.Offset)).
		Limit(uint64(page.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	projects := make([]types.Project, 0, page.Limit)
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, translate(err)
	}
	return projects, total, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project types.Project) (types.Project, error) {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	const query = `
		INSERT INTO projects (id, name, description, status, tenant_id, created_by, created_at, updated_at)
		VALUES (:id, :name, :description, :status, :tenant_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return types.Project{}, translate(err)
	}
	return project, nil
}

// Update writes name, description and status. tenant_id and created_by are
// never written after insert.
func (r *ProjectRepository) Update(ctx context.Context, project types.Project) (types.Project, error) {
	project.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE projects
		SET name = :name,
			description = :description,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return types.Project{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Project{}, err
	}
	if affected == 0 {
		return types.Project{}, ErrNotFound
	}
	return project, nil
}
