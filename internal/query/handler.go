package query

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gridgate/gridgate/internal/platform/httpx"
	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

// Envelope is the read-response shape returned by data endpoints.
type Envelope struct {
	Success          bool              `json:"success"`
	TotalRecords     int64             `json:"totalRecords"`
	Page             int               `json:"page"`
	PageSize         int               `json:"pageSize"`
	Data             any               `json:"data"`
	AvailableColumns map[string]string `json:"availableColumns"`
	AppliedFilters   *views.FilterNode `json:"appliedFilters"`
	AppliedSorting   []views.SortSpec  `json:"appliedSorting"`
	AppliedGrouping  []string          `json:"appliedGrouping"`
	Views            []views.Ref       `json:"views"`
}

// Handler serves the permission-scoped data read endpoint.
type Handler struct {
	logger      *slog.Logger
	views       *views.Service
	executor    *Executor
	maxPageSize int
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, viewsService *views.Service, executor *Executor, maxPageSize int) *Handler {
	return &Handler{logger: logger, views: viewsService, executor: executor, maxPageSize: maxPageSize}
}

// MountRoutes registers the read endpoints. The routes must be mounted
// behind the access gate; the handler trusts the context access entry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.read)
	r.Post("/query", h.read)
}

// parsePage reads a pagination parameter leniently: absent or non-numeric
// values fall back to zero, which NormalizePage turns into the default.
func parsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

type adhocRequest struct {
	Columns  []string          `json:"columns"`
	Filters  *views.FilterNode `json:"filters"`
	Sort     []views.SortSpec  `json:"sort"`
	GroupBy  []string          `json:"groupBy"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	access := shared.AccessFromContext(r.Context())
	if access == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	page := parsePage(r.URL.Query().Get("page"))
	pageSize := parsePage(r.URL.Query().Get("pageSize"))

	var columns, groupBy []string
	var filters *views.FilterNode
	var sort []views.SortSpec

	switch r.Method {
	case http.MethodPost:
		var req adhocRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, shared.Validationf("invalid query body: %v", err))
			return
		}
		columns, filters, sort, groupBy = req.Columns, req.Filters, req.Sort, req.GroupBy
		if req.Page > 0 {
			page = req.Page
		}
		if req.PageSize > 0 {
			pageSize = req.PageSize
		}
	default:
		view, err := h.resolveView(r, access)
		if err != nil {
			h.fail(w, "resolve view", err)
			return
		}
		columns, filters, sort, groupBy = view.Columns, view.Filters, view.Sort, view.GroupBy
	}

	if h.maxPageSize > 0 && pageSize > h.maxPageSize {
		pageSize = h.maxPageSize
	}

	// Stored views may reference columns the owner has since lost; the
	// request is re-sanitized against the live grant on every read.
	permitted := access.ColumnSet()
	columns = SanitizeColumns(columns, permitted)
	filters = SanitizeFilters(filters, permitted)
	sort = SanitizeSort(sort, permitted)
	groupBy = SanitizeGroupBy(groupBy, permitted)
	if len(columns) == 0 {
		columns = access.Columns
	}

	result, err := h.executor.Run(r.Context(), Request{
		Table:     access.Table,
		Columns:   columns,
		Filters:   filters,
		Sort:      sort,
		GroupBy:   groupBy,
		Page:      page,
		PageSize:  pageSize,
		Permitted: access.Columns,
	})
	if err != nil {
		h.fail(w, "execute query", err)
		return
	}

	refs, err := h.views.ListForUser(r.Context(), access.UserID, access.Table)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("list views", slog.Any("error", err))
		}
		refs = []views.Ref{}
	}

	if sort == nil {
		sort = []views.SortSpec{}
	}
	if groupBy == nil {
		groupBy = []string{}
	}
	httpx.JSON(w, http.StatusOK, Envelope{
		Success:          true,
		TotalRecords:     result.TotalRecords,
		Page:             result.Page,
		PageSize:         result.PageSize,
		Data:             result.Data,
		AvailableColumns: result.AvailableColumns,
		AppliedFilters:   filters,
		AppliedSorting:   sort,
		AppliedGrouping:  groupBy,
		Views:            refs,
	})
}

// resolveView loads the requested view (enforcing ownership and table
// scope) or lazily provisions the default "grid" view.
func (h *Handler) resolveView(r *http.Request, access *shared.Access) (*views.View, error) {
	if raw := r.URL.Query().Get("viewId"); raw != "" {
		viewID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || viewID <= 0 {
			return nil, shared.Validationf("viewId must be a positive integer")
		}
		return h.views.GetOwned(r.Context(), viewID, access.UserID, access.Table)
	}
	return h.views.GetOrCreateDefault(r.Context(), access.UserID, access.Table, access.Columns)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	if h.logger != nil {
		h.logger.Error(what, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
