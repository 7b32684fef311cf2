package access

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gridgate/gridgate/internal/platform/httpx"
	"github.com/gridgate/gridgate/internal/shared"
)

// PermManageAccess guards the grant-administration endpoints.
const PermManageAccess = "MANAGE_ACCESS_ROUTE"

// Handler wires grant-administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      Gate
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers access administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequirePermission(PermManageAccess))
		r.Get("/roles", h.listRoles)
		r.Post("/roles", h.createRole)
		r.Get("/roles/{roleID}", h.getRole)
		r.Put("/roles/{roleID}", h.updateRole)
		r.Delete("/roles/{roleID}", h.deleteRole)
		r.Put("/roles/{roleID}/permissions", h.setRolePermissions)
		r.Put("/roles/{roleID}/resources", h.setRoleResources)
		r.Get("/permissions", h.listPermissions)
		r.Get("/resources", h.listResources)
		r.Put("/users/{userID}", h.manageAccess)
		r.Get("/users/{userID}/effective", h.effectiveAccess)
	})
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toRoleResponse(role *Role) roleResponse {
	return roleResponse{ID: role.ID, Name: role.Name, Description: role.Description}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("%s must be a positive integer", name)
	}
	return id, nil
}

func actorID(r *http.Request) int64 {
	if access := shared.AccessFromContext(r.Context()); access != nil {
		return access.UserID
	}
	return 0
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, toRoleResponse(&roles[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid body: %v", err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("%v", err))
		return
	}
	role, err := h.service.CreateRole(r.Context(), actorID(r), req.Name, req.Description)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid body: %v", err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("%v", err))
		return
	}
	role, err := h.service.UpdateRole(r.Context(), actorID(r), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idListRequest struct {
	IDs []int64 `json:"ids" validate:"required"`
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.setRoleGrants(w, r, h.service.SetRolePermissions, "set role permissions")
}

func (h *Handler) setRoleResources(w http.ResponseWriter, r *http.Request) {
	h.setRoleGrants(w, r, h.service.SetRoleResources, "set role resources")
}

func (h *Handler) setRoleGrants(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, actorID, roleID int64, ids []int64) error, what string) {
	roleID, err := pathID(r, "roleID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req idListRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("ids must be an array of integers: %v", err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("%v", err))
		return
	}
	if err := apply(r.Context(), actorID(r), roleID, req.IDs); err != nil {
		h.fail(w, what, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	out := make([]PermissionGrant, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionGrant{Key: p.Key, Description: p.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.service.ListResources(r.Context())
	if err != nil {
		h.fail(w, "list resources", err)
		return
	}
	out := make([]ResourceGrant, 0, len(resources))
	for _, res := range resources {
		out = append(out, ResourceGrant{Key: res.Key, Columns: res.Columns})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type overrideItemRequest struct {
	PermissionID int64 `json:"permissionId,omitempty"`
	ResourceID   int64 `json:"resourceId,omitempty"`
	Granted      *bool `json:"granted"`
}

type manageAccessRequest struct {
	Permissions []overrideItemRequest `json:"permissions"`
	Resources   []overrideItemRequest `json:"resources"`
}

func (h *Handler) manageAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req manageAccessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("permissions and resources must be arrays: %v", err))
		return
	}
	perms := make([]OverrideItem, 0, len(req.Permissions))
	for _, item := range req.Permissions {
		perms = append(perms, OverrideItem{ID: item.PermissionID, Granted: item.Granted})
	}
	resources := make([]OverrideItem, 0, len(req.Resources))
	for _, item := range req.Resources {
		resources = append(resources, OverrideItem{ID: item.ResourceID, Granted: item.Granted})
	}
	if err := h.service.ManageAccess(r.Context(), actorID(r), userID, perms, resources); err != nil {
		h.fail(w, "manage access", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) effectiveAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	set, err := h.service.EffectiveAccess(r.Context(), userID)
	if err != nil {
		h.fail(w, "effective access", err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	if h.logger != nil {
		h.logger.Error(what, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
