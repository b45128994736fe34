package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/types"
)

const exportPageSize = 100

// ObjectStore is the subset of *storage.Storage used by exports.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// ExportService writes tenant snapshots to object storage.
type ExportService struct {
	tenants  TenantRepository
	users    UserRepository
	projects ProjectRepository
	objects  ObjectStore
	now      func() time.Time
}

// NewExportService wires an export service. objects may be nil, in which
// case every export fails with ErrStorageDisabled.
func NewExportService(tenants TenantRepository, users UserRepository, projects ProjectRepository, objects ObjectStore) *ExportService {
	return &ExportService{
		tenants:  tenants,
		users:    users,
		projects: projects,
		objects:  objects,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Export snapshots a tenant with its users and projects. Password hashes
// are never part of the snapshot.
func (s *ExportService) Export(ctx context.Context, p types.Principal, tenantID uuid.UUID) (types.ExportResult, error) {
	if !p.CanAdminister(tenantID) {
		return types.ExportResult{}, ErrForbidden
	}
	if s.objects == nil {
		return types.ExportResult{}, ErrStorageDisabled
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return types.ExportResult{}, err
	}

	snapshot := types.TenantExport{
		ExportedAt: s.now(),
		Tenant:     tenant,
		Users:      []types.User{},
		Projects:   []types.Project{},
	}
	for offset := 0; ; offset += exportPageSize {
		users, total, err := s.users.List(ctx, tenantID, types.UserFilter{}, types.Page{Offset: offset, Limit: exportPageSize})
		if err != nil {
			return types.ExportResult{}, fmt.Errorf("export users: %w", err)
		}
		snapshot.Users = append(snapshot.Users, users...)
		if len(users) == 0 || offset+len(users) >= total {
			break
		}
	}
	for offset := 0; ; offset += exportPageSize {
		projects, total, err := s.projects.List(ctx, tenantID, types.ProjectFilter{}, types.Page{Offset: offset, Limit: exportPageSize})
		if err != nil {
			return types.ExportResult{}, fmt.Errorf("export projects: %w", err)
		}
		snapshot.Projects = append(snapshot.Projects, projects...)
		if len(projects) == 0 || offset+len(projects) >= total {
			break
		}
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return types.ExportResult{}, err
	}

	key := exportKey(tenantID, snapshot.ExportedAt)
	if err := s.objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return types.ExportResult{}, fmt.Errorf("upload export: %w", err)
	}

	return types.ExportResult{
		ObjectKey: key,
		Bucket:    s.objects.Bucket(),
		Size:      int64(len(body)),
	}, nil
}

// exportKey names one snapshot. The random suffix keeps exports taken within
// the same second apart.
func exportKey(tenantID uuid.UUID, at time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("exports/%s/%s-%s.json", tenantID, at.UTC().Format("20060102T150405Z"), suffix)
}
