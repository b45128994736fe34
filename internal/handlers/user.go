package handlers

import (
	"net/http"

	"github.com/tenantdesk/apiserver/types"
)

func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
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

	var filter types.UserFilter
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := types.Role(raw)
		filter.Role = &role
	}
	if filter.Active, err = parseOptionalBool(r, "active"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.svc.Users.List(r.Context(), p, tenantID, filter, window)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.User]{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *TenantHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req types.NewUser
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Users.Create(r.Context(), p, tenantID, req)
	if err != nil {
		writeServiceError(w, r, err, "tenant")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *TenantHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Users.Get(r.Context(), p, tenantID, userID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *TenantHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	tenantID, err := parseUUIDParam(r, "tenantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req types.UserUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.Users.Update(r.Context(), p, tenantID, userID, req)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
