package views

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gridgate/gridgate/internal/platform/httpx"
	"github.com/gridgate/gridgate/internal/shared"
)

// Handler exposes saved-view management under a gated data resource.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the view routes. The routes must be mounted
// behind the access gate; the handler trusts the context access entry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{viewID}", h.get)
	r.Put("/{viewID}", h.update)
	r.Delete("/{viewID}", h.del)
}

type viewRequest struct {
	ViewName string      `json:"viewName" validate:"required,min=1,max=120"`
	Columns  []string    `json:"columns"`
	Filters  *FilterNode `json:"filters"`
	Sort     []SortSpec  `json:"sort"`
	GroupBy  []string    `json:"groupBy"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	refs, err := h.service.ListForUser(r.Context(), access.UserID, access.Table)
	if err != nil {
		h.fail(w, "list views", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "views": refs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	viewID, err := pathViewID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.GetOwned(r.Context(), viewID, access.UserID, access.Table)
	if err != nil {
		h.fail(w, "get view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "view": view})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	spec, err := h.decodeSpec(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Create(r.Context(), access.UserID, access.Table, spec)
	if err != nil {
		h.fail(w, "create view", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "view": view})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	viewID, err := pathViewID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	spec, err := h.decodeSpec(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Update(r.Context(), viewID, access.UserID, access.Table, spec)
	if err != nil {
		h.fail(w, "update view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "view": view})
}

func (h *Handler) del(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	viewID, err := pathViewID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), viewID, access.UserID, access.Table); err != nil {
		h.fail(w, "delete view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) decodeSpec(r *http.Request) (Spec, error) {
	var req viewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return Spec{}, shared.Validationf("invalid view body: %v", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return Spec{}, shared.Validationf("viewName is required")
	}
	return Spec{
		ViewName: req.ViewName,
		Columns:  req.Columns,
		Filters:  req.Filters,
		Sort:     req.Sort,
		GroupBy:  req.GroupBy,
	}, nil
}

func pathViewID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "viewID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("viewID must be a positive integer")
	}
	return id, nil
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	if h.logger != nil {
		h.logger.Error(what, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
