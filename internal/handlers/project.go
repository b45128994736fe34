package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/types"
)

func (h *TenantHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit, window, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filter types.ProjectFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := types.ProjectStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("created_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid created_by")
			return
		}
		filter.CreatedByID = &id
	}

	items, total, err := h.svc.Projects.List(r.Context(), p, tenantID, filter, window)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Project]{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *TenantHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TenantID != nil && *req.TenantID != tenantID {
		writeError(w, http.StatusBadRequest, "tenant_id does not match the request path")
		return
	}

	project, err := h.svc.Projects.Create(r.Context(), p, tenantID, req.NewProject)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *TenantHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.svc.Projects.Get(r.Context(), p, tenantID, projectID)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *TenantHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req types.ProjectUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.svc.Projects.Update(r.Context(), p, tenantID, projectID, req)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// CreateProjectRequest accepts an optional tenant_id, which must match the path.
type CreateProjectRequest struct {
	types.NewProject
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}
