package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantdesk/apiserver/internal/services"
	"github.com/tenantdesk/apiserver/types"
)

// TenantServices bundles the services behind the tenant routes.
type TenantServices struct {
	Tenants  *services.TenantService
	Users    *services.UserService
	Projects *services.ProjectService
	Exports  *services.ExportService
}

// TenantHandler provides HTTP handlers for tenants and the resources they own.
type TenantHandler struct {
	svc TenantServices
}

func NewTenantHandler(svc TenantServices) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// TenantRouter registers the tenant routes. authMiddleware runs first on
// every route; middlewares run after it, once the caller is known.
func TenantRouter(
	r chi.Router,
	svc TenantServices,
	authMiddleware func(http.Handler) http.Handler,
	middlewares ...func(http.Handler) http.Handler,
) {
	handler := NewTenantHandler(svc)

	r.Use(authMiddleware)
	r.Use(middlewares...)

	r.Get("/", handler.ListTenants)
	r.Post("/", handler.CreateTenant)
	r.Route("/{tenantID}", func(r chi.Router) {
		r.Get("/", handler.GetTenant)
		r.Put("/", handler.UpdateTenant)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", handler.ListUsers)
			r.Post("/", handler.CreateUser)
			r.Get("/{userID}", handler.GetUser)
			r.Put("/{userID}", handler.UpdateUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", handler.ListProjects)
			r.Post("/", handler.CreateProject)
			r.Get("/{projectID}", handler.GetProject)
			r.Put("/{projectID}", handler.UpdateProject)
		})

		r.Post("/exports", handler.ExportTenant)
	})
}

func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	page, limit, window, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.svc.Tenants.List(r.Context(), p, window)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Tenant]{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())

	var req CreateTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	tenant, err := h.svc.Tenants.Create(r.Context(), p, types.Tenant{Name: req.Name, Slug: req.Slug, IsActive: active})
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusCreated, tenant)
}

func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.svc.Tenants.Get(r.Context(), p, tenantID)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req types.TenantUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenant, err := h.svc.Tenants.Update(r.Context(), p, tenantID, req)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// ExportTenant snapshots the tenant to object storage.
func (h *TenantHandler) ExportTenant(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Exports.Export(r.Context(), p, tenantID)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type CreateTenantRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsActive *bool  `json:"is_active,omitempty"`
}
